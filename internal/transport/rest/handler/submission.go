package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"surveybot/internal/logger"
	"surveybot/internal/model"
	"surveybot/internal/repository"
)

const defaultSubmissionLimit = 50

// SubmissionHandler lists archived submissions. A nil repository means the archive is disabled.
type SubmissionHandler struct {
	repo   repository.SubmissionRepository
	logger *logger.Logger
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(repo repository.SubmissionRepository, log *logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{repo: repo, logger: log}
}

// List handles GET /v1/submissions?limit=N&respondent=ID
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "submission archive is disabled")
		return
	}

	q := r.URL.Query()
	var (
		submissions []*model.Submission
		err         error
	)
	if raw := q.Get("respondent"); raw != "" {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid respondent id")
			return
		}
		submissions, err = h.repo.ListByRespondent(r.Context(), model.RespondentID(id))
	} else {
		limit := defaultSubmissionLimit
		if raw := q.Get("limit"); raw != "" {
			n, perr := strconv.Atoi(raw)
			if perr != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		submissions, err = h.repo.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Failed to list submissions")
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

// Get handles GET /v1/submissions/{id}
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "submission archive is disabled")
		return
	}

	s, err := h.repo.GetByID(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Failed to load submission")
		writeError(w, http.StatusInternalServerError, "failed to load submission")
		return
	}

	writeJSON(w, http.StatusOK, s)
}
