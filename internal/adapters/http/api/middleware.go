package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/fraudscope/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for one
// endpoint. Error classes come from the code written into the error body, so
// a rejected signature and an oversized limit are counted apart even though
// both answer 400.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(rw.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, durationMs)

		if rw.statusCode >= http.StatusBadRequest {
			metrics.RecordHTTPError(endpoint, r.Method, errorClass(rw), errorSeverity(rw.statusCode))
		}
	}
}

// errorClass prefers the handler's own error code and falls back to the
// status family for responses written outside writeError.
func errorClass(rw *responseWriter) string {
	if rw.errorCode != "" {
		return rw.errorCode
	}
	switch {
	case rw.statusCode == http.StatusNotFound:
		return "not_found"
	case rw.statusCode == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case rw.statusCode >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

// errorSeverity ranks failures of the pipeline itself above a dependency
// being down, and both above caller mistakes.
func errorSeverity(status int) string {
	switch {
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway:
		return "high"
	case status >= http.StatusInternalServerError:
		return "critical"
	case status == http.StatusNotFound, status == http.StatusConflict:
		return "low"
	default:
		return "medium"
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	errorCode  string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
