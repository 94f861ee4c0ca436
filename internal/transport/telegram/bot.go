// Package telegram adapts Telegram updates to conversation events and renders replies.
package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surveybot/internal/logger"
	"surveybot/internal/model"
)

// Sender is the part of *tgbotapi.BotAPI the bot needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ConversationHandler turns inbound events into replies
type ConversationHandler interface {
	HandleEvent(ctx context.Context, ev model.InboundEvent) *model.Reply
}

// Bot connects Telegram to the conversation engine
type Bot struct {
	sender  Sender
	handler ConversationHandler
	logger  *logger.Logger
}

// NewBot creates a bot
func NewBot(sender Sender, handler ConversationHandler, log *logger.Logger) *Bot {
	return &Bot{sender: sender, handler: handler, logger: log}
}

// target is where a reply goes
type target struct {
	chatID    int64
	messageID int // Message carrying the pressed button, 0 for typed input
}

// HandleUpdate processes one update. Updates that carry nothing the bot understands are dropped.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, tgt, ok := b.inbound(update)
	if !ok {
		return
	}
	reply := b.handler.HandleEvent(ctx, ev)
	if reply == nil {
		return
	}
	b.render(tgt, reply)
}

// RespondentKey returns the user id an update belongs to, 0 when there is none
func RespondentKey(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	}
	return 0
}

func (b *Bot) inbound(update tgbotapi.Update) (model.InboundEvent, target, bool) {
	if cq := update.CallbackQuery; cq != nil {
		// Stop the client spinner whatever happens next
		if _, err := b.sender.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.logger.WithError(err).Debug("Failed to answer callback query")
		}
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return model.InboundEvent{}, target{}, false
		}
		return model.InboundEvent{
				Kind:         model.InboundButton,
				RespondentID: model.RespondentID(cq.From.ID),
				Payload:      cq.Data,
			},
			target{chatID: cq.Message.Chat.ID, messageID: cq.Message.MessageID},
			true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return model.InboundEvent{}, target{}, false
	}
	tgt := target{chatID: msg.Chat.ID}
	id := model.RespondentID(msg.From.ID)

	if msg.IsCommand() {
		return model.InboundEvent{Kind: model.InboundCommand, RespondentID: id, Command: msg.Command()}, tgt, true
	}
	if msg.Text == "" {
		return model.InboundEvent{}, target{}, false
	}
	return model.InboundEvent{Kind: model.InboundText, RespondentID: id, Text: msg.Text}, tgt, true
}

func (b *Bot) render(tgt target, reply *model.Reply) {
	log := b.logger.WithFields(zap.Int64("chat_id", tgt.chatID), zap.String("delivery", string(reply.Delivery)))

	if tgt.messageID != 0 {
		switch reply.Delivery {
		case model.DeliveryEditKeyboard:
			if markup, ok := inlineMarkup(reply.Keyboard); ok {
				err := b.request(tgbotapi.NewEditMessageReplyMarkup(tgt.chatID, tgt.messageID, markup))
				if err == nil {
					return
				}
				log.WithError(err).Warn("Failed to edit keyboard, sending a new message")
			}
		case model.DeliveryEdit:
			var edit tgbotapi.EditMessageTextConfig
			if markup, ok := inlineMarkup(reply.Keyboard); ok {
				edit = tgbotapi.NewEditMessageTextAndMarkup(tgt.chatID, tgt.messageID, reply.Text, markup)
			} else if reply.Keyboard == nil {
				edit = tgbotapi.NewEditMessageText(tgt.chatID, tgt.messageID, reply.Text)
			}
			if edit.Text != "" {
				err := b.request(edit)
				if err == nil {
					return
				}
				log.WithError(err).Warn("Failed to edit message, sending a new message")
			}
		}
	}

	msg := tgbotapi.NewMessage(tgt.chatID, reply.Text)
	if reply.Keyboard != nil {
		switch reply.Keyboard.Kind {
		case model.KeyboardInline:
			if markup, ok := inlineMarkup(reply.Keyboard); ok {
				msg.ReplyMarkup = markup
			}
		case model.KeyboardTextInput:
			msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		}
	}
	if _, err := b.sender.Send(msg); err != nil {
		log.WithError(err).Error("Failed to send message")
	}
}

// request sends an edit; an unchanged message counts as success
func (b *Bot) request(c tgbotapi.Chattable) error {
	_, err := b.sender.Request(c)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func inlineMarkup(kb *model.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	if kb == nil || kb.Kind != model.KeyboardInline || len(kb.Rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Payload))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
