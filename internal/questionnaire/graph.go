package questionnaire

import (
	"fmt"
	"strings"

	"surveybot/internal/model"
	"surveybot/internal/validation"
)

// Check validates the question graph and returns the entry point: the only question that no
// other question points to. Every problem found is reported in one error wrapping ErrInvalid.
func Check(questions []model.Question) (string, error) {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(questions) == 0 {
		return "", fmt.Errorf("%w: no questions defined", ErrInvalid)
	}

	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		q := &questions[i]
		switch {
		case q.ID == "":
			add("question #%d has an empty id", i+1)
			continue
		case q.ID == model.QuestionStart || q.ID == model.QuestionCompleted:
			add("question id %q is reserved", q.ID)
		case strings.Contains(q.ID, ":"):
			add("question id %q must not contain ':'", q.ID)
		}
		if _, dup := byID[q.ID]; dup {
			add("question id %q is defined twice", q.ID)
			continue
		}
		byID[q.ID] = q
		checkQuestion(q, add)
	}

	predecessors := make(map[string]int, len(byID))
	for _, q := range byID {
		if q.Next != model.QuestionCompleted {
			if _, ok := byID[q.Next]; !ok {
				add("question %q: next %q does not exist", q.ID, q.Next)
				continue
			}
		}
		predecessors[q.Next]++
	}

	var entries []string
	for i := range questions {
		id := questions[i].ID
		if byID[id] == &questions[i] && predecessors[id] == 0 {
			entries = append(entries, id)
		}
	}
	if len(entries) != 1 {
		add("expected exactly one entry question without a predecessor, found %d %v", len(entries), entries)
	}

	if len(problems) == 0 {
		for _, q := range questions {
			if err := reachesCompleted(q.ID, byID); err != "" {
				add("%s", err)
			}
		}
	}

	if len(problems) > 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return entries[0], nil
}

func checkQuestion(q *model.Question, add func(string, ...any)) {
	if strings.TrimSpace(q.Text) == "" {
		add("question %q has no text", q.ID)
	}
	if !q.Type.Valid() {
		add("question %q has unknown type %q", q.ID, q.Type)
		return
	}

	if q.Type == model.QuestionTypeText {
		if len(q.Options) > 0 {
			add("text question %q must not define options", q.ID)
		}
		if q.Validation != "" && !validation.Known(q.Validation) {
			add("question %q has unknown validation %q", q.ID, q.Validation)
		}
		return
	}

	if q.Validation != "" {
		add("choice question %q must not declare validation", q.ID)
	}
	if len(q.Options) == 0 {
		add("choice question %q has no options", q.ID)
		return
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		switch {
		case o.ID == "":
			add("question %q has an option with an empty id", q.ID)
			continue
		case strings.Contains(o.ID, ":"):
			add("question %q: option id %q must not contain ':'", q.ID, o.ID)
		case seen[o.ID]:
			add("question %q: option id %q is defined twice", q.ID, o.ID)
		}
		seen[o.ID] = true
		if strings.TrimSpace(o.Label) == "" {
			add("question %q: option %q has no text", q.ID, o.ID)
		}
		for _, cb := range optionCallbacks(q, o.ID) {
			if len(cb) > model.MaxCallbackLen {
				add("question %q: option %q payload %q exceeds %d bytes", q.ID, o.ID, cb, model.MaxCallbackLen)
				break
			}
		}
	}
}

func optionCallbacks(q *model.Question, optionID string) []string {
	if q.Type == model.QuestionTypeSingleChoice {
		return []string{
			model.SingleChoiceCallback(q.ID, optionID).Encode(),
			model.SkipCommentCallback(q.ID, optionID).Encode(),
		}
	}
	return []string{
		model.ToggleCallback(q.ID, optionID).Encode(),
		model.SkipCommentCallback(q.ID, optionID).Encode(),
		model.DoneCallback(q.ID).Encode(),
	}
}

// reachesCompleted follows next pointers from id. Each question has one successor, so a walk
// longer than the number of questions is a cycle.
func reachesCompleted(id string, byID map[string]*model.Question) string {
	cur := id
	for steps := 0; steps <= len(byID); steps++ {
		if cur == model.QuestionCompleted {
			return ""
		}
		q, ok := byID[cur]
		if !ok {
			return fmt.Sprintf("question %q leads to missing question %q", id, cur)
		}
		cur = q.Next
	}
	return fmt.Sprintf("question %q is part of a cycle and never reaches %q", id, model.QuestionCompleted)
}
