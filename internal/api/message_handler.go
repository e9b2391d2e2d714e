package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Synapse/internal/domain"
)

// ListMessages возвращает сообщения run'а в порядке создания.
// GET /api/v1/runs/{id}/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	// Проверяем, что run существует
	if _, err := h.runs.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	messages, err := h.messages.ListByRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		result[i] = MessageFromDomain(msg)
	}

	List(w, result, len(result))
}

// AppendMessage добавляет пользовательское сообщение к run'у.
// POST /api/v1/runs/{id}/messages
//
// Role всегда user независимо от тела запроса: action-сообщения
// создаёт только воркер.
func (h *Handler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRunID(w, r)
	if !ok {
		return
	}

	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Content == "" {
		BadRequest(w, "content is required")
		return
	}

	if _, err := h.runs.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	msg := domain.NewMessage(id, domain.MessageRoleUser, req.Content, req.Payload)
	if err := h.messages.Create(r.Context(), msg); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, MessageFromDomain(*msg))
}
