package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/model"
)

func formatterQuestionnaire() *model.Questionnaire {
	return model.NewQuestionnaire("name", model.Messages{}, []model.Question{
		{ID: "name", Text: "Full name?", Type: model.QuestionTypeText, Next: "land"},
		{ID: "land", Text: "Own land?", Type: model.QuestionTypeSingleChoice, Next: "use", Options: []model.Option{
			{ID: "own", Label: "Yes", DisplayLabel: "Owns land"},
			{ID: "lease", Label: "Lease", CommentRequired: true},
		}},
		{ID: "use", Text: "Land use?", Type: model.QuestionTypeMultiChoice, Next: model.QuestionCompleted, Options: []model.Option{
			{ID: "crops", Label: "Crops"},
			{ID: "cattle", Label: "Cattle", CommentRequired: true},
			{ID: "other", Label: "Other:", CommentRequired: true, CommentSeparator: " "},
		}},
	})
}

func TestFormatter_AllAnswered(t *testing.T) {
	q := formatterQuestionnaire()
	single, err := model.NewSingleChoiceAnswer("lease", "from the village")
	require.NoError(t, err)
	multi, err := model.NewMultiChoiceAnswer(
		[]string{"other", "crops", "cattle"},
		map[string]string{"other": "orchard", "cattle": "12 cows"},
	)
	require.NoError(t, err)

	rows := NewFormatter().Format(model.Answers{
		"use":  multi,
		"name": model.NewTextAnswer("Ann Marie Lee"),
		"land": single,
	}, q)

	assert.Equal(t, []model.Row{
		{Label: "Full name?", Text: "Ann Marie Lee"},
		{Label: "Own land?", Text: "Lease - from the village"},
		{Label: "Land use?", Text: "Other: orchard; Crops; Cattle - 12 cows"},
	}, rows)
}

func TestFormatter_UnansweredQuestionsKeepTheirRow(t *testing.T) {
	q := formatterQuestionnaire()
	f := NewFormatter()

	rows := f.Format(model.Answers{}, q)
	require.Len(t, rows, q.Len())
	for _, r := range rows {
		assert.Empty(t, r.Text)
	}

	single, err := model.NewSingleChoiceAnswer("own", "")
	require.NoError(t, err)
	rows = f.Format(model.Answers{"land": single}, q)
	require.Len(t, rows, q.Len())
	assert.Equal(t, "", rows[0].Text)
	assert.Equal(t, "Owns land", rows[1].Text)
	assert.Equal(t, "", rows[2].Text)
}

func TestFormatter_SkippedCommentAndUnknownOptions(t *testing.T) {
	q := formatterQuestionnaire()
	multi, err := model.NewMultiChoiceAnswer([]string{"crops", "ghost", "cattle"}, map[string]string{"cattle": ""})
	require.NoError(t, err)
	single, err := model.NewSingleChoiceAnswer("vanished", "note")
	require.NoError(t, err)

	rows := NewFormatter().Format(model.Answers{"use": multi, "land": single}, q)
	assert.Equal(t, "Crops; ; Cattle", rows[2].Text)
	assert.Equal(t, " - note", rows[1].Text)
}
