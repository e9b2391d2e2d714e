package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Runs
	mux.Handle("POST /api/v1/workspaces/{id}/runs", chain(http.HandlerFunc(h.CreateRun)))
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/active", chain(http.HandlerFunc(h.ListActiveRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("POST /api/v1/runs/{id}/cancel", chain(http.HandlerFunc(h.CancelRun)))

	// Messages
	mux.Handle("GET /api/v1/runs/{id}/messages", chain(http.HandlerFunc(h.ListMessages)))
	mux.Handle("POST /api/v1/runs/{id}/messages", chain(http.HandlerFunc(h.AppendMessage)))

	// Node states
	mux.Handle("GET /api/v1/runs/{id}/states", chain(http.HandlerFunc(h.ListNodeStates)))
	mux.Handle("GET /api/v1/runs/{id}/states/{node}", chain(http.HandlerFunc(h.GetNodeState)))

	// Reasoning traces
	mux.Handle("GET /api/v1/runs/{id}/traces", chain(http.HandlerFunc(h.ListTraces)))
}
