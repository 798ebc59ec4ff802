package api

import (
	"net/http"

	"github.com/okian/fraudscope/internal/domain/model"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

type statsResponse struct {
	Processor model.ProcessorStatistics `json:"processor"`
	Store     *model.StoreStatistics    `json:"store,omitempty"`
}

// HandleStats handles GET /stats requests. Store figures are omitted while
// the pipeline is stopped.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := statsResponse{Processor: h.deps.Statistics()}
	if resp.Processor.Running {
		st, err := h.deps.StoreStatistics(r.Context())
		if err != nil {
			writeUpstreamError(w, op, err)
			return
		}
		resp.Store = &st
	}
	writeJSON(w, http.StatusOK, resp)
}
