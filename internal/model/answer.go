package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AnswerKind discriminates the Answer union
type AnswerKind string

const (
	AnswerKindText         AnswerKind = "text"
	AnswerKindSingleChoice AnswerKind = "single_choice"
	AnswerKindMultiChoice  AnswerKind = "multi_choice"
)

var (
	ErrEmptyOptionID     = errors.New("answer option id is empty")
	ErrNoOptionsSelected = errors.New("multi choice answer has no options")
	ErrDuplicateOption   = errors.New("multi choice answer repeats an option")
	ErrCommentNotChosen  = errors.New("comment refers to an option that is not selected")
)

// Answer is a recorded answer for one question. Implementations are TextAnswer,
// SingleChoiceAnswer and MultiChoiceAnswer.
type Answer interface {
	Kind() AnswerKind
	isAnswer()
}

// TextAnswer is a free-text answer
type TextAnswer struct {
	Value string
}

func (TextAnswer) Kind() AnswerKind { return AnswerKindText }
func (TextAnswer) isAnswer()        {}

// NewTextAnswer creates a text answer
func NewTextAnswer(value string) TextAnswer {
	return TextAnswer{Value: value}
}

// SingleChoiceAnswer is one chosen option with an optional comment
type SingleChoiceAnswer struct {
	OptionID string
	Comment  string
}

func (SingleChoiceAnswer) Kind() AnswerKind { return AnswerKindSingleChoice }
func (SingleChoiceAnswer) isAnswer()        {}

// NewSingleChoiceAnswer validates and creates a single choice answer
func NewSingleChoiceAnswer(optionID, comment string) (SingleChoiceAnswer, error) {
	if optionID == "" {
		return SingleChoiceAnswer{}, ErrEmptyOptionID
	}
	return SingleChoiceAnswer{OptionID: optionID, Comment: comment}, nil
}

// MultiChoiceAnswer is an ordered set of options with per-option comments
type MultiChoiceAnswer struct {
	OptionIDs []string
	Comments  map[string]string
}

func (MultiChoiceAnswer) Kind() AnswerKind { return AnswerKindMultiChoice }
func (MultiChoiceAnswer) isAnswer()        {}

// NewMultiChoiceAnswer validates and creates a multi choice answer. The inputs are copied.
func NewMultiChoiceAnswer(optionIDs []string, comments map[string]string) (MultiChoiceAnswer, error) {
	if len(optionIDs) == 0 {
		return MultiChoiceAnswer{}, ErrNoOptionsSelected
	}
	seen := make(map[string]bool, len(optionIDs))
	ids := make([]string, 0, len(optionIDs))
	for _, id := range optionIDs {
		if id == "" {
			return MultiChoiceAnswer{}, ErrEmptyOptionID
		}
		if seen[id] {
			return MultiChoiceAnswer{}, fmt.Errorf("%w: %s", ErrDuplicateOption, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	cs := make(map[string]string, len(comments))
	for id, c := range comments {
		if !seen[id] {
			return MultiChoiceAnswer{}, fmt.Errorf("%w: %s", ErrCommentNotChosen, id)
		}
		cs[id] = c
	}
	return MultiChoiceAnswer{OptionIDs: ids, Comments: cs}, nil
}

// HasComment reports whether a comment (possibly empty, i.e. skipped) was recorded for id
func (a MultiChoiceAnswer) HasComment(id string) bool {
	_, ok := a.Comments[id]
	return ok
}

// WithComment returns a copy of a with the comment for id set
func (a MultiChoiceAnswer) WithComment(id, comment string) (MultiChoiceAnswer, error) {
	cs := make(map[string]string, len(a.Comments)+1)
	for k, v := range a.Comments {
		cs[k] = v
	}
	cs[id] = comment
	return NewMultiChoiceAnswer(a.OptionIDs, cs)
}

// Answers maps question id to its answer
type Answers map[string]Answer

type answerEnvelope struct {
	Kind      AnswerKind        `json:"kind"`
	Value     string            `json:"value,omitempty"`
	OptionID  string            `json:"optionId,omitempty"`
	Comment   string            `json:"comment,omitempty"`
	OptionIDs []string          `json:"optionIds,omitempty"`
	Comments  map[string]string `json:"comments,omitempty"`
}

// MarshalJSON encodes each answer with a kind discriminator
func (a Answers) MarshalJSON() ([]byte, error) {
	out := make(map[string]answerEnvelope, len(a))
	for qid, ans := range a {
		switch v := ans.(type) {
		case TextAnswer:
			out[qid] = answerEnvelope{Kind: v.Kind(), Value: v.Value}
		case SingleChoiceAnswer:
			out[qid] = answerEnvelope{Kind: v.Kind(), OptionID: v.OptionID, Comment: v.Comment}
		case MultiChoiceAnswer:
			out[qid] = answerEnvelope{Kind: v.Kind(), OptionIDs: v.OptionIDs, Comments: v.Comments}
		default:
			return nil, fmt.Errorf("answer %s: unsupported type %T", qid, ans)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes answers and re-validates their shape
func (a *Answers) UnmarshalJSON(data []byte) error {
	var in map[string]answerEnvelope
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Answers, len(in))
	for qid, env := range in {
		switch env.Kind {
		case AnswerKindText:
			out[qid] = NewTextAnswer(env.Value)
		case AnswerKindSingleChoice:
			v, err := NewSingleChoiceAnswer(env.OptionID, env.Comment)
			if err != nil {
				return fmt.Errorf("answer %s: %w", qid, err)
			}
			out[qid] = v
		case AnswerKindMultiChoice:
			v, err := NewMultiChoiceAnswer(env.OptionIDs, env.Comments)
			if err != nil {
				return fmt.Errorf("answer %s: %w", qid, err)
			}
			out[qid] = v
		default:
			return fmt.Errorf("answer %s: unknown kind %q", qid, env.Kind)
		}
	}
	*a = out
	return nil
}
