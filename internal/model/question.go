package model

// QuestionType defines how a question is answered
type QuestionType string

const (
	QuestionTypeText         QuestionType = "text"          // Free text, optionally validated
	QuestionTypeSingleChoice QuestionType = "single_choice" // One button press
	QuestionTypeMultiChoice  QuestionType = "multi_choice"  // Toggles plus a done button
)

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeSingleChoice, QuestionTypeMultiChoice:
		return true
	}
	return false
}

// Sentinel question ids used by the conversation state
const (
	QuestionStart     = "start"
	QuestionCompleted = "completed"
)

// CommentTypeNone disables the comment prompt even when CommentRequired is set.
// A single choice option without a comment type is treated as CommentTypeNone.
const CommentTypeNone = "none"

// DefaultCommentSeparator joins an option label and its comment in exported rows
const DefaultCommentSeparator = " - "

// Option is one selectable answer of a choice question
type Option struct {
	ID               string `json:"id"`
	Label            string `json:"text"`                       // Shown on the button
	DisplayLabel     string `json:"displayText,omitempty"`      // Shown in the export
	CommentRequired  bool   `json:"commentRequired,omitempty"`  // Selecting asks for a follow-up
	CommentType      string `json:"commentType,omitempty"`      // "none" disables the follow-up
	CommentPrompt    string `json:"commentQuestion,omitempty"`  // Follow-up prompt text
	CommentOptional  bool   `json:"commentOptional,omitempty"`  // Single choice: offer a skip button
	CommentSeparator string `json:"commentSeparator,omitempty"` // Export join between label and comment
}

// ExportLabel returns the label written to the spreadsheet
func (o *Option) ExportLabel() string {
	if o.DisplayLabel != "" {
		return o.DisplayLabel
	}
	return o.Label
}

// Separator returns the join used between the export label and a comment
func (o *Option) Separator() string {
	if o.CommentSeparator != "" {
		return o.CommentSeparator
	}
	return DefaultCommentSeparator
}

// Question is an immutable node of the question graph
type Question struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Options    []Option     `json:"options,omitempty"`
	Next       string       `json:"next"`
	Validation string       `json:"validation,omitempty"` // Rule tag, text questions only
}

// Option looks up an option by id
func (q *Question) Option(id string) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// NeedsComment reports whether selecting o on q demands a follow-up comment.
// Multi choice options only need comment_required; single choice options also need a comment type.
func (q *Question) NeedsComment(o *Option) bool {
	if !o.CommentRequired || o.CommentType == CommentTypeNone {
		return false
	}
	return q.Type != QuestionTypeSingleChoice || o.CommentType != ""
}

// IsTerminal reports whether answering q completes the questionnaire
func (q *Question) IsTerminal() bool {
	return q.Next == QuestionCompleted
}
