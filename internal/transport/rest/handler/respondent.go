package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"surveybot/internal/cache"
	"surveybot/internal/logger"
	"surveybot/internal/model"
)

// ConversationInspector reads and resets respondent conversations
type ConversationInspector interface {
	Snapshot(ctx context.Context, id model.RespondentID) (*model.ConversationState, error)
	Reset(ctx context.Context, id model.RespondentID) error
}

// RespondentHandler exposes conversation state to operators
type RespondentHandler struct {
	conversations ConversationInspector
	logger        *logger.Logger
}

// NewRespondentHandler creates a new respondent handler
func NewRespondentHandler(conversations ConversationInspector, log *logger.Logger) *RespondentHandler {
	return &RespondentHandler{conversations: conversations, logger: log}
}

// State handles GET /v1/respondents/{id}/state
func (h *RespondentHandler) State(w http.ResponseWriter, r *http.Request) {
	id, ok := respondentID(w, r)
	if !ok {
		return
	}

	st, err := h.conversations.Snapshot(r.Context(), id)
	if errors.Is(err, cache.ErrStateNotFound) {
		writeError(w, http.StatusNotFound, "no conversation for respondent")
		return
	}
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Failed to load conversation")
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Reset handles DELETE /v1/respondents/{id}
func (h *RespondentHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := respondentID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.Reset(r.Context(), id); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Failed to reset conversation")
		writeError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}

	h.logger.WithContext(r.Context()).WithRespondent(int64(id)).Info("Conversation reset by operator",
		zapOperator(r))
	w.WriteHeader(http.StatusNoContent)
}

func respondentID(w http.ResponseWriter, r *http.Request) (model.RespondentID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid respondent id")
		return 0, false
	}
	return model.RespondentID(id), true
}
