package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"surveybot/internal/cache"
	"surveybot/internal/events"
	"surveybot/internal/logger"
	"surveybot/internal/metrics"
	"surveybot/internal/model"
	"surveybot/internal/validation"
)

const (
	markerSelected   = "✅ "
	markerUnselected = "⬜ "
)

// ResponseExporter delivers the rows of a finished questionnaire
type ResponseExporter interface {
	Export(ctx context.Context, respondent model.RespondentID, rows []model.Row) error
}

// Engine drives each respondent through the questionnaire. Entry points never return
// errors: failures become replies, and a nil reply means the event changed nothing.
type Engine struct {
	store     cache.StateStore
	survey    *model.Questionnaire
	formatter *Formatter
	exporter  ResponseExporter
	locks     *KeyedLocker
	recorder  metrics.Recorder
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// EngineOption customizes an Engine
type EngineOption func(*Engine)

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithPublisher sets where lifecycle events go
func WithPublisher(p events.Publisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a conversation engine
func NewEngine(store cache.StateStore, survey *model.Questionnaire, exporter ResponseExporter, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		survey:    survey,
		formatter: NewFormatter(),
		exporter:  exporter,
		locks:     NewKeyedLocker(),
		recorder:  metrics.Nop(),
		publisher: events.NopPublisher(),
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleEvent routes a transport-neutral inbound event
func (e *Engine) HandleEvent(ctx context.Context, ev model.InboundEvent) *model.Reply {
	e.recorder.IncEvent(string(ev.Kind))

	switch ev.Kind {
	case model.InboundCommand:
		if ev.Command == model.CommandStart {
			return e.HandleStart(ctx, ev.RespondentID)
		}
		return nil
	case model.InboundText:
		return e.HandleFreeText(ctx, ev.RespondentID, ev.Text)
	case model.InboundButton:
		cb, err := model.ParseCallback(ev.Payload)
		if err != nil {
			e.logger.WithRespondent(int64(ev.RespondentID)).Debug("Ignoring button payload",
				zap.String("payload", ev.Payload), zap.Error(err))
			return nil
		}
		switch cb.Action {
		case model.ActionStartSurvey:
			return e.HandleBeginQuestionnaire(ctx, ev.RespondentID)
		case model.ActionSingleChoice:
			return e.HandleSingleChoiceSelected(ctx, ev.RespondentID, cb.QuestionID, cb.OptionID)
		case model.ActionMultiChoiceToggle:
			return e.HandleMultiChoiceToggled(ctx, ev.RespondentID, cb.QuestionID, cb.OptionID)
		case model.ActionMultiChoiceDone:
			return e.HandleMultiChoiceConfirmed(ctx, ev.RespondentID, cb.QuestionID)
		case model.ActionSkipComment:
			return e.HandleCommentSkipped(ctx, ev.RespondentID, cb.QuestionID, cb.OptionID)
		}
	}
	return nil
}

// HandleStart discards any progress and shows the welcome message
func (e *Engine) HandleStart(ctx context.Context, id model.RespondentID) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	log := e.logger.WithRespondent(int64(id))
	if err := e.store.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to clear conversation")
		return e.genericError()
	}
	st := model.NewConversationState(id)
	if err := e.save(ctx, st); err != nil {
		log.WithError(err).Error("Failed to create conversation")
		return e.genericError()
	}

	e.recorder.IncConversation(metrics.StageStarted)
	e.publish(ctx, events.SubjectSurveyStarted, id, nil)
	log.Info("Conversation started")

	msgs := e.survey.Messages
	return &model.Reply{
		Text:     msgs.Welcome,
		Keyboard: model.InlineKeyboard(model.Button{Text: msgs.BeginButton, Payload: model.StartSurveyCallback().Encode()}),
		Delivery: model.DeliveryNew,
	}
}

// HandleBeginQuestionnaire moves the respondent onto the entry question. A conversation
// already in progress gets its current question shown again.
func (e *Engine) HandleBeginQuestionnaire(ctx context.Context, id model.RespondentID) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, ok := e.load(ctx, id)
	if !ok {
		return e.genericError()
	}
	if st == nil {
		st = model.NewConversationState(id)
	}

	if st.InProgress() {
		q, found := e.survey.Question(st.CurrentQuestion)
		if !found {
			return e.resetCorrupt(ctx, st)
		}
		if st.IsAwaitingComment() {
			return e.commentPrompt(q, st, true)
		}
		return e.renderQuestion(q, st, true)
	}

	st.Answers = make(model.Answers)
	st.MoveTo(e.survey.Entry)
	if err := e.save(ctx, st); err != nil {
		e.logger.WithRespondent(int64(id)).WithError(err).Error("Failed to save conversation")
		return e.genericError()
	}
	e.recorder.IncConversation(metrics.StageBegun)

	q, _ := e.survey.Question(e.survey.Entry)
	return e.renderQuestion(q, st, true)
}

// HandleSingleChoiceSelected records a single choice, or asks for the option's comment first
func (e *Engine) HandleSingleChoiceSelected(ctx context.Context, id model.RespondentID, questionID, optionID string) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, q, reply, ok := e.current(ctx, id, questionID, model.QuestionTypeSingleChoice)
	if !ok {
		return reply
	}
	if st.IsAwaitingComment() {
		return nil
	}
	opt, found := q.Option(optionID)
	if !found {
		return nil
	}

	if q.NeedsComment(opt) {
		st.AwaitComment(opt.ID, e.commentText(opt))
		if err := e.save(ctx, st); err != nil {
			e.logger.WithRespondent(int64(id)).WithError(err).Error("Failed to save conversation")
			return e.genericError()
		}
		return e.commentPrompt(q, st, true)
	}

	answer, err := model.NewSingleChoiceAnswer(opt.ID, "")
	if err != nil {
		return nil
	}
	st.Answers[q.ID] = answer
	return e.advance(ctx, st, q, true)
}

// HandleMultiChoiceToggled flips one option of the pending selection
func (e *Engine) HandleMultiChoiceToggled(ctx context.Context, id model.RespondentID, questionID, optionID string) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, q, reply, ok := e.current(ctx, id, questionID, model.QuestionTypeMultiChoice)
	if !ok {
		return reply
	}
	if st.IsAwaitingComment() {
		return nil
	}
	if _, found := q.Option(optionID); !found {
		return nil
	}

	st.ToggleSelection(optionID)
	if err := e.save(ctx, st); err != nil {
		e.logger.WithRespondent(int64(id)).WithError(err).Error("Failed to save conversation")
		return e.genericError()
	}

	r := e.renderQuestion(q, st, true)
	r.Delivery = model.DeliveryEditKeyboard
	return r
}

// HandleMultiChoiceConfirmed records the selection and walks through the options that need
// a comment, in selection order
func (e *Engine) HandleMultiChoiceConfirmed(ctx context.Context, id model.RespondentID, questionID string) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, q, reply, ok := e.current(ctx, id, questionID, model.QuestionTypeMultiChoice)
	if !ok {
		return reply
	}
	if st.IsAwaitingComment() {
		return nil
	}

	if len(st.PendingSelections) == 0 {
		r := e.renderQuestion(q, st, true)
		r.Text = q.Text + "\n\n" + e.survey.Messages.SelectAtLeastOne
		return r
	}

	answer, err := model.NewMultiChoiceAnswer(st.PendingSelections, nil)
	if err != nil {
		e.logger.WithRespondent(int64(id)).WithError(err).Warn("Invalid pending selection")
		return e.resetCorrupt(ctx, st)
	}
	st.Answers[q.ID] = answer

	if slot, found := nextCommentSlot(q, answer); found {
		st.AwaitComment(slot.ID, e.commentText(slot))
		if err := e.save(ctx, st); err != nil {
			e.logger.WithRespondent(int64(id)).WithError(err).Error("Failed to save conversation")
			return e.genericError()
		}
		return e.commentPrompt(q, st, true)
	}
	return e.advance(ctx, st, q, true)
}

// HandleCommentText fills the pending comment slot
func (e *Engine) HandleCommentText(ctx context.Context, id model.RespondentID, text string) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, ok := e.load(ctx, id)
	if !ok {
		return e.genericError()
	}
	if st == nil || !st.IsAwaitingComment() {
		return nil
	}
	return e.handleComment(ctx, st, text)
}

// HandleCommentSkipped resolves the pending slot with an empty comment. Multi choice comments
// can always be skipped; single choice ones only when the option allows it.
func (e *Engine) HandleCommentSkipped(ctx context.Context, id model.RespondentID, questionID, optionID string) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, ok := e.load(ctx, id)
	if !ok {
		return e.genericError()
	}
	if st == nil || st.CurrentQuestion != questionID || st.AwaitingCommentFor != optionID {
		return nil
	}
	q, found := e.survey.Question(questionID)
	if !found {
		return nil
	}
	opt, found := q.Option(optionID)
	if !found || !commentSkippable(q, opt) {
		return nil
	}
	return e.resolveComment(ctx, st, q, "", true)
}

// HandleFreeText routes typed text to the pending comment, the current text question, or a hint
func (e *Engine) HandleFreeText(ctx context.Context, id model.RespondentID, text string) *model.Reply {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, ok := e.load(ctx, id)
	if !ok {
		return e.genericError()
	}
	if st == nil || !st.InProgress() {
		return e.restartHint()
	}
	if st.IsAwaitingComment() {
		return e.handleComment(ctx, st, text)
	}

	q, found := e.survey.Question(st.CurrentQuestion)
	if !found {
		return e.resetCorrupt(ctx, st)
	}
	if q.Type != model.QuestionTypeText {
		return e.renderQuestion(q, st, false)
	}

	if strings.TrimSpace(text) == "" {
		return e.rePrompt(q, e.survey.Messages.EmptyAnswer)
	}
	valid, hint, err := validation.Validate(q.Validation, text)
	if err != nil {
		e.logger.WithRespondent(int64(id)).WithError(err).Error("Validation rule missing")
		return e.genericError()
	}
	if !valid {
		e.recorder.IncValidationFailure(q.Validation)
		return e.rePrompt(q, hint)
	}

	st.Answers[q.ID] = model.NewTextAnswer(text)
	return e.advance(ctx, st, q, false)
}

// Snapshot returns the stored conversation of a respondent
func (e *Engine) Snapshot(ctx context.Context, id model.RespondentID) (*model.ConversationState, error) {
	unlock := e.locks.Lock(id)
	defer unlock()
	return e.store.Get(ctx, id)
}

// Reset drops a respondent's conversation
func (e *Engine) Reset(ctx context.Context, id model.RespondentID) error {
	unlock := e.locks.Lock(id)
	defer unlock()
	if err := e.store.Delete(ctx, id); err != nil {
		return err
	}
	e.recorder.IncConversation(metrics.StageReset)
	e.publish(ctx, events.SubjectSurveyReset, id, nil)
	return nil
}

func (e *Engine) handleComment(ctx context.Context, st *model.ConversationState, text string) *model.Reply {
	q, found := e.survey.Question(st.CurrentQuestion)
	if !found {
		return e.resetCorrupt(ctx, st)
	}
	if strings.TrimSpace(text) == "" {
		r := e.commentPrompt(q, st, false)
		r.Text = e.survey.Messages.EmptyAnswer + "\n\n" + r.Text
		return r
	}
	return e.resolveComment(ctx, st, q, text, false)
}

// resolveComment stores comment for the pending slot, then asks for the next slot or
// finishes the question
func (e *Engine) resolveComment(ctx context.Context, st *model.ConversationState, q *model.Question, comment string, afterButton bool) *model.Reply {
	optionID := st.AwaitingCommentFor
	st.ClearComment()

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		answer, err := model.NewSingleChoiceAnswer(optionID, comment)
		if err != nil {
			return e.resetCorrupt(ctx, st)
		}
		st.Answers[q.ID] = answer
		return e.advance(ctx, st, q, afterButton)

	case model.QuestionTypeMultiChoice:
		prev, ok := st.Answers[q.ID].(model.MultiChoiceAnswer)
		if !ok {
			return e.resetCorrupt(ctx, st)
		}
		answer, err := prev.WithComment(optionID, comment)
		if err != nil {
			return e.resetCorrupt(ctx, st)
		}
		st.Answers[q.ID] = answer

		if slot, found := nextCommentSlot(q, answer); found {
			st.AwaitComment(slot.ID, e.commentText(slot))
			if err := e.save(ctx, st); err != nil {
				e.logger.WithRespondent(int64(st.RespondentID)).WithError(err).Error("Failed to save conversation")
				return e.genericError()
			}
			return e.commentPrompt(q, st, afterButton)
		}
		return e.advance(ctx, st, q, afterButton)
	}
	return e.resetCorrupt(ctx, st)
}

// advance moves past q, finishing the questionnaire after a terminal question
func (e *Engine) advance(ctx context.Context, st *model.ConversationState, q *model.Question, afterButton bool) *model.Reply {
	if q.IsTerminal() {
		st.MoveTo(model.QuestionCompleted)
		return e.finish(ctx, st)
	}

	next, found := e.survey.Question(q.Next)
	if !found {
		return e.resetCorrupt(ctx, st)
	}
	st.MoveTo(next.ID)
	if err := e.save(ctx, st); err != nil {
		e.logger.WithRespondent(int64(st.RespondentID)).WithError(err).Error("Failed to save conversation")
		return e.genericError()
	}
	return e.renderQuestion(next, st, afterButton)
}

// finish exports the answers and clears the conversation whatever the export outcome
func (e *Engine) finish(ctx context.Context, st *model.ConversationState) *model.Reply {
	log := e.logger.WithRespondent(int64(st.RespondentID))
	rows := e.formatter.Format(st.Answers, e.survey)

	exportErr := e.exporter.Export(ctx, st.RespondentID, rows)
	if err := e.store.Delete(context.WithoutCancel(ctx), st.RespondentID); err != nil {
		log.WithError(err).Error("Failed to clear finished conversation")
	}

	e.recorder.IncConversation(metrics.StageCompleted)
	e.publish(ctx, events.SubjectSurveyCompleted, st.RespondentID, map[string]any{
		"exported": exportErr == nil,
		"answers":  len(st.Answers),
	})

	msgs := e.survey.Messages
	if exportErr != nil {
		log.WithError(exportErr).Error("Export failed")
		return &model.Reply{Text: msgs.CompletionFailure, Delivery: model.DeliveryNew}
	}
	log.Info("Conversation completed", zap.Int("answers", len(st.Answers)))
	return &model.Reply{Text: msgs.CompletionSuccess, Delivery: model.DeliveryNew}
}

// current loads the state and checks it is positioned on questionID of the given type.
// When it is not, reply holds what to answer, nil for a silent no-op.
func (e *Engine) current(ctx context.Context, id model.RespondentID, questionID string, typ model.QuestionType) (st *model.ConversationState, q *model.Question, reply *model.Reply, ok bool) {
	st, loaded := e.load(ctx, id)
	if !loaded {
		return nil, nil, e.genericError(), false
	}
	if st == nil || st.CurrentQuestion != questionID {
		return nil, nil, nil, false
	}
	q, found := e.survey.Question(questionID)
	if !found || q.Type != typ {
		return nil, nil, nil, false
	}
	return st, q, nil, true
}

// load returns nil state without error when the respondent has no conversation.
// ok is false on store failure.
func (e *Engine) load(ctx context.Context, id model.RespondentID) (*model.ConversationState, bool) {
	st, err := e.store.Get(ctx, id)
	if errors.Is(err, cache.ErrStateNotFound) {
		return nil, true
	}
	if err != nil {
		e.logger.WithRespondent(int64(id)).WithError(err).Error("Failed to load conversation")
		return nil, false
	}
	if st.Answers == nil {
		st.Answers = make(model.Answers)
	}
	return st, true
}

func (e *Engine) save(ctx context.Context, st *model.ConversationState) error {
	st.UpdatedAt = e.now().UTC()
	return e.store.Put(ctx, st)
}

// resetCorrupt drops a state that no longer matches the questionnaire
func (e *Engine) resetCorrupt(ctx context.Context, st *model.ConversationState) *model.Reply {
	log := e.logger.WithRespondent(int64(st.RespondentID))
	log.Warn("Conversation state does not match the questionnaire, resetting",
		zap.String("question", st.CurrentQuestion))
	if err := e.store.Delete(ctx, st.RespondentID); err != nil {
		log.WithError(err).Error("Failed to clear conversation")
	}
	return e.genericError()
}

func (e *Engine) publish(ctx context.Context, subject string, id model.RespondentID, data map[string]any) {
	if data == nil {
		data = make(map[string]any, 1)
	}
	data["respondentId"] = int64(id)
	if err := e.publisher.Publish(ctx, subject, events.NewEvent(subject, data)); err != nil {
		e.logger.WithRespondent(int64(id)).WithError(err).Warn("Failed to publish event",
			zap.String("subject", subject))
	}
}

// renderQuestion builds the prompt for q. Text questions always arrive as a new message;
// choice prompts replace the previous message when answering a button press.
func (e *Engine) renderQuestion(q *model.Question, st *model.ConversationState, afterButton bool) *model.Reply {
	delivery := model.DeliveryNew
	if afterButton {
		delivery = model.DeliveryEdit
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		buttons := make([]model.Button, 0, len(q.Options))
		for _, o := range q.Options {
			buttons = append(buttons, model.Button{
				Text:    o.Label,
				Payload: model.SingleChoiceCallback(q.ID, o.ID).Encode(),
			})
		}
		return &model.Reply{Text: q.Text, Keyboard: model.InlineKeyboard(buttons...), Delivery: delivery}

	case model.QuestionTypeMultiChoice:
		buttons := make([]model.Button, 0, len(q.Options)+1)
		for _, o := range q.Options {
			marker := markerUnselected
			if st.IsSelected(o.ID) {
				marker = markerSelected
			}
			buttons = append(buttons, model.Button{
				Text:    marker + o.Label,
				Payload: model.ToggleCallback(q.ID, o.ID).Encode(),
			})
		}
		buttons = append(buttons, model.Button{
			Text:    e.survey.Messages.DoneButton,
			Payload: model.DoneCallback(q.ID).Encode(),
		})
		return &model.Reply{Text: q.Text, Keyboard: model.InlineKeyboard(buttons...), Delivery: delivery}
	}

	return &model.Reply{Text: q.Text, Keyboard: model.TextInputKeyboard(), Delivery: model.DeliveryNew}
}

// commentPrompt asks for the pending comment, with a skip button when skipping is allowed
func (e *Engine) commentPrompt(q *model.Question, st *model.ConversationState, afterButton bool) *model.Reply {
	r := &model.Reply{Text: st.CommentPromptText, Delivery: model.DeliveryNew}
	if afterButton {
		r.Delivery = model.DeliveryEdit
	}
	if r.Text == "" {
		r.Text = e.survey.Messages.CommentPrompt
	}
	if opt, found := q.Option(st.AwaitingCommentFor); found && commentSkippable(q, opt) {
		r.Keyboard = model.InlineKeyboard(model.Button{
			Text:    e.survey.Messages.SkipButton,
			Payload: model.SkipCommentCallback(q.ID, opt.ID).Encode(),
		})
	}
	return r
}

func (e *Engine) rePrompt(q *model.Question, hint string) *model.Reply {
	return &model.Reply{
		Text:     hint + "\n\n" + q.Text,
		Keyboard: model.TextInputKeyboard(),
		Delivery: model.DeliveryNew,
	}
}

func (e *Engine) commentText(opt *model.Option) string {
	if opt.CommentPrompt != "" {
		return opt.CommentPrompt
	}
	return e.survey.Messages.CommentPrompt
}

func (e *Engine) restartHint() *model.Reply {
	return &model.Reply{Text: e.survey.Messages.RestartHint, Delivery: model.DeliveryNew}
}

func (e *Engine) genericError() *model.Reply {
	return &model.Reply{Text: e.survey.Messages.GenericError, Delivery: model.DeliveryNew}
}

// nextCommentSlot returns the first selected option that needs a comment and has none yet
func nextCommentSlot(q *model.Question, answer model.MultiChoiceAnswer) (*model.Option, bool) {
	for _, id := range answer.OptionIDs {
		opt, found := q.Option(id)
		if found && q.NeedsComment(opt) && !answer.HasComment(id) {
			return opt, true
		}
	}
	return nil, false
}

func commentSkippable(q *model.Question, opt *model.Option) bool {
	return q.Type == model.QuestionTypeMultiChoice || opt.CommentOptional
}
