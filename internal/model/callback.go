package model

import (
	"errors"
	"fmt"
	"strings"
)

// CallbackAction is the action tag of a button payload
type CallbackAction string

const (
	ActionStartSurvey       CallbackAction = "start_survey"
	ActionSingleChoice      CallbackAction = "single_choice"
	ActionMultiChoiceToggle CallbackAction = "multi_choice_toggle"
	ActionMultiChoiceDone   CallbackAction = "multi_choice_done"
	ActionSkipComment       CallbackAction = "skip_comment"
)

// MaxCallbackLen is the Telegram limit for callback data, in bytes
const MaxCallbackLen = 64

const callbackSep = ":"

var (
	ErrEmptyCallback     = errors.New("empty callback payload")
	ErrUnknownCallback   = errors.New("unknown callback action")
	ErrMalformedCallback = errors.New("malformed callback payload")
)

// Callback is a decoded button payload
type Callback struct {
	Action     CallbackAction
	QuestionID string
	OptionID   string
}

// Encode renders the compact action:question[:option] form
func (c Callback) Encode() string {
	switch c.Action {
	case ActionStartSurvey:
		return string(c.Action)
	case ActionMultiChoiceDone:
		return string(c.Action) + callbackSep + c.QuestionID
	default:
		return string(c.Action) + callbackSep + c.QuestionID + callbackSep + c.OptionID
	}
}

// ParseCallback decodes a button payload
func ParseCallback(data string) (Callback, error) {
	if data == "" {
		return Callback{}, ErrEmptyCallback
	}
	if data == string(ActionStartSurvey) {
		return Callback{Action: ActionStartSurvey}, nil
	}

	parts := strings.SplitN(data, callbackSep, 3)
	action := CallbackAction(parts[0])
	switch action {
	case ActionMultiChoiceDone:
		if len(parts) != 2 || parts[1] == "" {
			return Callback{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
		}
		return Callback{Action: action, QuestionID: parts[1]}, nil
	case ActionSingleChoice, ActionMultiChoiceToggle, ActionSkipComment:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return Callback{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
		}
		return Callback{Action: action, QuestionID: parts[1], OptionID: parts[2]}, nil
	}
	return Callback{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
}

// StartSurveyCallback is the payload of the welcome button
func StartSurveyCallback() Callback {
	return Callback{Action: ActionStartSurvey}
}

// SingleChoiceCallback is the payload of a single choice option button
func SingleChoiceCallback(questionID, optionID string) Callback {
	return Callback{Action: ActionSingleChoice, QuestionID: questionID, OptionID: optionID}
}

// ToggleCallback is the payload of a multi choice toggle button
func ToggleCallback(questionID, optionID string) Callback {
	return Callback{Action: ActionMultiChoiceToggle, QuestionID: questionID, OptionID: optionID}
}

// DoneCallback is the payload of a multi choice confirm button
func DoneCallback(questionID string) Callback {
	return Callback{Action: ActionMultiChoiceDone, QuestionID: questionID}
}

// SkipCommentCallback is the payload of a comment skip button
func SkipCommentCallback(questionID, optionID string) Callback {
	return Callback{Action: ActionSkipComment, QuestionID: questionID, OptionID: optionID}
}
