package api

import (
	"net/http"
)

// ListNodeStates возвращает состояния узлов run'а.
// GET /api/v1/runs/{id}/states
func (h *Handler) ListNodeStates(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	if _, err := h.runs.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	states, err := h.nodeStates.ListByRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]NodeStateResponse, len(states))
	for i, ns := range states {
		result[i] = NodeStateFromDomain(ns)
	}

	List(w, result, len(result))
}

// GetNodeState возвращает состояние узла по ключу.
// GET /api/v1/runs/{id}/states/{node}
func (h *Handler) GetNodeState(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	nodeKey := r.PathValue("node")
	ns, err := h.nodeStates.Get(r.Context(), id, nodeKey)
	if HandleRepoError(w, h.logger, err, "node state not found") {
		return
	}

	Success(w, NodeStateFromDomain(*ns))
}
