package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationState_ToggleSelection(t *testing.T) {
	st := NewConversationState(1)
	assert.False(t, st.InProgress())

	st.ToggleSelection("c")
	st.ToggleSelection("a")
	st.ToggleSelection("b")
	st.ToggleSelection("a")
	assert.Equal(t, []string{"c", "b"}, st.PendingSelections)
	assert.True(t, st.IsSelected("b"))
	assert.False(t, st.IsSelected("a"))
}

func TestConversationState_MoveToClearsScratch(t *testing.T) {
	st := NewConversationState(1)
	st.ToggleSelection("a")
	st.AwaitComment("a", "Which?")
	assert.True(t, st.IsAwaitingComment())

	st.MoveTo("q2")
	assert.Equal(t, "q2", st.CurrentQuestion)
	assert.True(t, st.InProgress())
	assert.Empty(t, st.PendingSelections)
	assert.False(t, st.IsAwaitingComment())
	assert.Empty(t, st.CommentPromptText)
}

func TestConversationState_CloneIsDeep(t *testing.T) {
	st := NewConversationState(1)
	st.ToggleSelection("a")
	multi, err := NewMultiChoiceAnswer([]string{"a"}, map[string]string{"a": "x"})
	require.NoError(t, err)
	st.Answers["q"] = multi

	c := st.Clone()
	c.ToggleSelection("b")
	c.Answers["q2"] = NewTextAnswer("y")
	c.Answers["q"].(MultiChoiceAnswer).Comments["a"] = "changed"

	assert.Equal(t, []string{"a"}, st.PendingSelections)
	assert.Len(t, st.Answers, 1)
	assert.Equal(t, "x", st.Answers["q"].(MultiChoiceAnswer).Comments["a"])
}
