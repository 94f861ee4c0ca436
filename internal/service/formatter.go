package service

import (
	"strings"

	"surveybot/internal/model"
)

const multiChoiceJoin = "; "

// Formatter linearizes a respondent's answers into export rows
type Formatter struct{}

// NewFormatter creates a formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format returns one row per defined question in definition order. Unanswered questions
// produce an empty text.
func (f *Formatter) Format(answers model.Answers, q *model.Questionnaire) []model.Row {
	rows := make([]model.Row, 0, q.Len())
	for i := range q.Questions {
		question := &q.Questions[i]
		rows = append(rows, model.Row{
			Label: question.Text,
			Text:  f.formatAnswer(question, answers[question.ID]),
		})
	}
	return rows
}

func (f *Formatter) formatAnswer(question *model.Question, answer model.Answer) string {
	switch a := answer.(type) {
	case nil:
		return ""
	case model.TextAnswer:
		return a.Value
	case model.SingleChoiceAnswer:
		text := optionLabel(question, a.OptionID)
		if a.Comment != "" {
			text += model.DefaultCommentSeparator + a.Comment
		}
		return text
	case model.MultiChoiceAnswer:
		parts := make([]string, 0, len(a.OptionIDs))
		for _, id := range a.OptionIDs {
			part := optionLabel(question, id)
			if c := a.Comments[id]; c != "" {
				sep := model.DefaultCommentSeparator
				if opt, ok := question.Option(id); ok {
					sep = opt.Separator()
				}
				part += sep + c
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, multiChoiceJoin)
	}
	return ""
}

// optionLabel resolves the export label; unknown ids render empty
func optionLabel(question *model.Question, optionID string) string {
	if opt, ok := question.Option(optionID); ok {
		return opt.ExportLabel()
	}
	return ""
}
