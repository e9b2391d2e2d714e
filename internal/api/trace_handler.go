package api

import (
	"net/http"
)

// ListTraces возвращает шаги рассуждений run'а в порядке step_number.
// GET /api/v1/runs/{id}/traces
func (h *Handler) ListTraces(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	if _, err := h.runs.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	traces, err := h.traces.ListByRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TraceResponse, len(traces))
	for i, t := range traces {
		result[i] = TraceFromDomain(t)
	}

	List(w, result, len(result))
}
