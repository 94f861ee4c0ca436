package model

// Messages holds the fixed texts of the conversation. Empty fields fall back to defaults.
type Messages struct {
	Welcome           string `json:"welcome" yaml:"welcome"`
	BeginButton       string `json:"beginButton" yaml:"begin_button"`
	DoneButton        string `json:"doneButton" yaml:"done_button"`
	SkipButton        string `json:"skipButton" yaml:"skip_button"`
	CommentPrompt     string `json:"commentPrompt" yaml:"comment_prompt"`
	SelectAtLeastOne  string `json:"selectAtLeastOne" yaml:"select_at_least_one"`
	RestartHint       string `json:"restartHint" yaml:"restart_hint"`
	EmptyAnswer       string `json:"emptyAnswer" yaml:"empty_answer"`
	CompletionSuccess string `json:"completionSuccess" yaml:"completion_success"`
	CompletionFailure string `json:"completionFailure" yaml:"completion_failure"`
	GenericError      string `json:"genericError" yaml:"generic_error"`
	SheetHeaderLabel  string `json:"sheetHeaderLabel" yaml:"sheet_header_label"`
	SheetHeaderText   string `json:"sheetHeaderText" yaml:"sheet_header_text"`
}

// DefaultMessages returns the built-in conversation texts
func DefaultMessages() Messages {
	return Messages{
		Welcome: "Dear landowner, thank you for your willingness to cooperate! " +
			"Your answers help us understand the situation and plan consultations on developing " +
			"agricultural business in our settlement. Please answer a few questions.",
		BeginButton:       "Go to questions",
		DoneButton:        "Done",
		SkipButton:        "Skip",
		CommentPrompt:     "Please provide additional details:",
		SelectAtLeastOne:  "Please select at least one option.",
		RestartHint:       "Use the /start command to begin the questionnaire.",
		EmptyAnswer:       "The answer cannot be empty.",
		CompletionSuccess: "Thank you for taking part! Your answers have been saved. We will contact you for further consultations.",
		CompletionFailure: "An error occurred while saving your answers. Please try again later with /start.",
		GenericError:      "Something went wrong. Please send /start to begin again.",
		SheetHeaderLabel:  "Question",
		SheetHeaderText:   "Answer",
	}
}

// WithDefaults fills empty fields from DefaultMessages
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.Welcome, d.Welcome)
	fill(&m.BeginButton, d.BeginButton)
	fill(&m.DoneButton, d.DoneButton)
	fill(&m.SkipButton, d.SkipButton)
	fill(&m.CommentPrompt, d.CommentPrompt)
	fill(&m.SelectAtLeastOne, d.SelectAtLeastOne)
	fill(&m.RestartHint, d.RestartHint)
	fill(&m.EmptyAnswer, d.EmptyAnswer)
	fill(&m.CompletionSuccess, d.CompletionSuccess)
	fill(&m.CompletionFailure, d.CompletionFailure)
	fill(&m.GenericError, d.GenericError)
	fill(&m.SheetHeaderLabel, d.SheetHeaderLabel)
	fill(&m.SheetHeaderText, d.SheetHeaderText)
	return m
}

// Questionnaire is the validated question graph loaded once at startup
type Questionnaire struct {
	Entry     string     `json:"entry"`
	Messages  Messages   `json:"messages"`
	Questions []Question `json:"questions"` // Definition order

	index map[string]int
}

// NewQuestionnaire builds the lookup index. Graph validation lives in the questionnaire package.
func NewQuestionnaire(entry string, messages Messages, questions []Question) *Questionnaire {
	q := &Questionnaire{
		Entry:     entry,
		Messages:  messages.WithDefaults(),
		Questions: questions,
		index:     make(map[string]int, len(questions)),
	}
	for i := range questions {
		q.index[questions[i].ID] = i
	}
	return q
}

// Question looks up a question by id
func (q *Questionnaire) Question(id string) (*Question, bool) {
	i, ok := q.index[id]
	if !ok {
		return nil, false
	}
	return &q.Questions[i], true
}

// Len returns the number of defined questions
func (q *Questionnaire) Len() int {
	return len(q.Questions)
}
