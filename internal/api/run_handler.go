package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/domain"
	"github.com/shaiso/Synapse/internal/repo"
)

const defaultListLimit = 50

// CreateRun создаёт run и ставит job в очередь воркеров.
// POST /api/v1/workspaces/{id}/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Prompt == "" {
		BadRequest(w, "prompt is required")
		return
	}
	kind := req.RunKind
	if kind == "" {
		kind = "explore"
	}

	run := domain.NewRun(workspaceID, req.UserID, kind, req.Prompt, req.Context)

	if err := h.runs.Create(r.Context(), run); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Без job run не запустится: воркеры читают только очередь.
	if err := h.queue.Enqueue(r.Context(), domain.NewJob(run)); err != nil {
		h.logger.Error("failed to enqueue job", "run_id", run.ID, "error", err)
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("run created",
		"run_id", run.ID,
		"workspace_id", workspaceID,
		"run_kind", kind,
	)

	Created(w, RunFromDomain(*run))
}

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?workspace_id=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		WorkspaceID: r.URL.Query().Get("workspace_id"),
		Status:      domain.RunStatus(r.URL.Query().Get("status")),
		Limit:       parseIntQuery(r, "limit", defaultListLimit),
		Offset:      parseIntQuery(r, "offset", 0),
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// ListActiveRuns возвращает активные (queued, running) runs workspace'а.
// GET /api/v1/runs/active?workspace_id=...
func (h *Handler) ListActiveRuns(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		BadRequest(w, "workspace_id is required")
		return
	}

	runs, err := h.runs.ListActive(r.Context(), workspaceID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает run вместе с его сообщениями.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	messages, err := h.messages.ListByRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	detail := RunDetailResponse{
		RunResponse: RunFromDomain(*run),
		Messages:    make([]MessageResponse, len(messages)),
	}
	for i, m := range messages {
		detail.Messages[i] = MessageFromDomain(m)
	}

	Success(w, detail)
}

// CancelRun отменяет run.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, err := h.canceller.Cancel(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// parseRunID извлекает run id из пути, отвечая 400 при мусоре.
func parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}

// parseIntQuery парсит целочисленный query-параметр с дефолтом.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
