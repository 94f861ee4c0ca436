package handler

import (
	"net/http"

	"go.uber.org/zap"

	"surveybot/internal/model"
	"surveybot/internal/transport/rest/middleware"
)

// QuestionnaireHandler serves the loaded question graph
type QuestionnaireHandler struct {
	survey *model.Questionnaire
}

// NewQuestionnaireHandler creates a new questionnaire handler
func NewQuestionnaireHandler(survey *model.Questionnaire) *QuestionnaireHandler {
	return &QuestionnaireHandler{survey: survey}
}

// Get handles GET /v1/questionnaire
func (h *QuestionnaireHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.survey)
}

func zapOperator(r *http.Request) zap.Field {
	return zap.String("operator_id", middleware.GetOperatorID(r.Context()))
}
