package model

import "time"

// RespondentID identifies the person answering (the chat user id)
type RespondentID int64

// ConversationState is the mutable per-respondent position in the questionnaire
type ConversationState struct {
	RespondentID       RespondentID `json:"respondentId"`
	CurrentQuestion    string       `json:"currentQuestion"`
	Answers            Answers      `json:"answers"`
	PendingSelections  []string     `json:"pendingSelections,omitempty"`  // Multi choice, selection order
	AwaitingCommentFor string       `json:"awaitingCommentFor,omitempty"` // Option id, empty when not waiting
	CommentPromptText  string       `json:"commentPromptText,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// NewConversationState creates a state positioned before the first question
func NewConversationState(id RespondentID) *ConversationState {
	return &ConversationState{
		RespondentID:    id,
		CurrentQuestion: QuestionStart,
		Answers:         make(Answers),
	}
}

// IsAwaitingComment reports whether free text should be treated as a comment
func (s *ConversationState) IsAwaitingComment() bool {
	return s.AwaitingCommentFor != ""
}

// InProgress reports whether the respondent is positioned on a real question
func (s *ConversationState) InProgress() bool {
	return s.CurrentQuestion != QuestionStart && s.CurrentQuestion != QuestionCompleted
}

// IsSelected reports whether optionID is in the pending multi choice selection
func (s *ConversationState) IsSelected(optionID string) bool {
	for _, id := range s.PendingSelections {
		if id == optionID {
			return true
		}
	}
	return false
}

// ToggleSelection flips membership of optionID, keeping selection order
func (s *ConversationState) ToggleSelection(optionID string) {
	for i, id := range s.PendingSelections {
		if id == optionID {
			s.PendingSelections = append(s.PendingSelections[:i:i], s.PendingSelections[i+1:]...)
			return
		}
	}
	s.PendingSelections = append(s.PendingSelections, optionID)
}

// AwaitComment blocks the conversation until a comment for optionID arrives
func (s *ConversationState) AwaitComment(optionID, prompt string) {
	s.AwaitingCommentFor = optionID
	s.CommentPromptText = prompt
}

// ClearComment stops waiting for a comment
func (s *ConversationState) ClearComment() {
	s.AwaitingCommentFor = ""
	s.CommentPromptText = ""
}

// MoveTo positions the conversation on the next question and drops per-question scratch data
func (s *ConversationState) MoveTo(questionID string) {
	s.CurrentQuestion = questionID
	s.PendingSelections = nil
	s.ClearComment()
}

// Clone returns a deep copy safe to hand out of the store
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.PendingSelections = append([]string(nil), s.PendingSelections...)
	c.Answers = make(Answers, len(s.Answers))
	for k, v := range s.Answers {
		if m, ok := v.(MultiChoiceAnswer); ok {
			cs := make(map[string]string, len(m.Comments))
			for id, text := range m.Comments {
				cs[id] = text
			}
			v = MultiChoiceAnswer{OptionIDs: append([]string(nil), m.OptionIDs...), Comments: cs}
		}
		c.Answers[k] = v
	}
	return &c
}
