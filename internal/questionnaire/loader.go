// Package questionnaire loads the questionnaire document and checks its question graph.
package questionnaire

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"surveybot/internal/model"
)

var ErrInvalid = errors.New("invalid questionnaire")

type optionDoc struct {
	ID               string `yaml:"id"`
	Text             string `yaml:"text"`
	DisplayText      string `yaml:"display_text"`
	CommentRequired  bool   `yaml:"comment_required"`
	CommentType      string `yaml:"comment_type"`
	CommentQuestion  string `yaml:"comment_question"`
	CommentOptional  bool   `yaml:"comment_optional"`
	CommentSeparator string `yaml:"comment_separator"`
}

type questionDoc struct {
	Text       string      `yaml:"text"`
	Type       string      `yaml:"type"`
	Options    []optionDoc `yaml:"options"`
	Next       string      `yaml:"next"`
	Validation string      `yaml:"validation"`
}

type document struct {
	Welcome   string         `yaml:"welcome"`
	Messages  model.Messages `yaml:"messages"`
	Questions yaml.Node      `yaml:"questions"`
}

// Load reads and validates the questionnaire at path. JSON documents are accepted too.
func Load(path string) (*model.Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire %s: %w", path, err)
	}
	q, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("questionnaire %s: %w", path, err)
	}
	return q, nil
}

// Parse decodes a questionnaire document, keeping question definition order, and validates it.
func Parse(data []byte) (*model.Questionnaire, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc.Questions.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: questions must be a mapping of id to question", ErrInvalid)
	}

	questions := make([]model.Question, 0, len(doc.Questions.Content)/2)
	for i := 0; i+1 < len(doc.Questions.Content); i += 2 {
		keyNode, valueNode := doc.Questions.Content[i], doc.Questions.Content[i+1]
		var qd questionDoc
		if err := valueNode.Decode(&qd); err != nil {
			return nil, fmt.Errorf("%w: question %q (line %d): %v", ErrInvalid, keyNode.Value, keyNode.Line, err)
		}
		questions = append(questions, qd.toModel(keyNode.Value))
	}

	messages := doc.Messages
	if doc.Welcome != "" {
		messages.Welcome = doc.Welcome
	}

	entry, err := Check(questions)
	if err != nil {
		return nil, err
	}
	return model.NewQuestionnaire(entry, messages, questions), nil
}

func (qd questionDoc) toModel(id string) model.Question {
	q := model.Question{
		ID:         id,
		Text:       qd.Text,
		Type:       model.QuestionType(qd.Type),
		Next:       qd.Next,
		Validation: qd.Validation,
	}
	if q.Next == "" {
		q.Next = model.QuestionCompleted
	}
	if len(qd.Options) > 0 {
		q.Options = make([]model.Option, 0, len(qd.Options))
		for _, od := range qd.Options {
			q.Options = append(q.Options, model.Option{
				ID:               od.ID,
				Label:            od.Text,
				DisplayLabel:     od.DisplayText,
				CommentRequired:  od.CommentRequired,
				CommentType:      od.CommentType,
				CommentPrompt:    od.CommentQuestion,
				CommentOptional:  od.CommentOptional,
				CommentSeparator: od.CommentSeparator,
			})
		}
	}
	return q
}
