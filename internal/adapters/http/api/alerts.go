package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/fraudscope/internal/domain/model"
)

// AlertsHandler lists and resolves operator alerts.
type AlertsHandler struct {
	deps Dependencies
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps Dependencies) *AlertsHandler {
	return &AlertsHandler{deps: deps}
}

// HandleListAlerts handles GET /alerts requests.
func (h *AlertsHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_alerts"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	alerts, err := h.deps.OpenAlerts(r.Context())
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	if alerts == nil {
		alerts = []model.OpenAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandleResolveAlert handles POST /alerts/{id}/resolve requests.
func (h *AlertsHandler) HandleResolveAlert(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve_alert"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/alerts/")
	idStr, ok := strings.CutSuffix(rest, "/resolve")
	if !ok || idStr == "" || strings.Contains(idStr, "/") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.ResolveAlert(r.Context(), id); err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{ID: id, Status: string(model.AlertResolved)})
}

type resolveResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}
