package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramMessenger sends chat actions through the Bot API
type TelegramMessenger struct {
	api *tgbotapi.BotAPI
}

// NewTelegramMessenger wraps an authorized bot
func NewTelegramMessenger(api *tgbotapi.BotAPI) *TelegramMessenger {
	return &TelegramMessenger{api: api}
}

func (m *TelegramMessenger) SendText(chatID int64, text string) error {
	_, err := m.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (m *TelegramMessenger) SendKeyboard(chatID int64, text string, kb Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = inlineMarkup(kb)
	_, err := m.api.Send(msg)
	return err
}

func (m *TelegramMessenger) EditKeyboard(chatID int64, messageID int, kb Keyboard) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, inlineMarkup(kb))
	_, err := m.api.Request(edit)
	return err
}

func (m *TelegramMessenger) PromptReply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.ForceReply{
		ForceReply:            true,
		InputFieldPlaceholder: "YYYY-MM-DD",
	}
	_, err := m.api.Send(msg)
	return err
}

func (m *TelegramMessenger) AnswerCallback(callbackID string) error {
	_, err := m.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

func inlineMarkup(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// FromUpdate classifies a Telegram update. callbackID is set for inline
// button presses, which must be answered. ok is false for update kinds the
// bot ignores (edits, channel posts, ...).
func FromUpdate(update tgbotapi.Update) (ev Event, callbackID string, ok bool) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		msg := update.Message
		if msg.Text == "" {
			return UnknownEvent{Chat: msg.Chat.ID}, "", true
		}
		return ParseText(msg.Chat.ID, msg.Text), "", true

	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil {
			// inline-mode callbacks carry no chat
			return nil, cb.ID, false
		}
		return ParseCallback(cb.Message.Chat.ID, cb.Message.MessageID, cb.Data), cb.ID, true

	default:
		return nil, "", false
	}
}

// HandleUpdate answers callback queries and feeds the update to Handle
func (c *Controller) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ev, callbackID, ok := FromUpdate(update)
	if callbackID != "" {
		if err := c.out.AnswerCallback(callbackID); err != nil {
			c.logger.Warn().Err(err).Str("callback_id", callbackID).Msg("Failed to answer callback")
		}
	}
	if !ok {
		c.logger.Debug().Int("update_id", update.UpdateID).Msg("Ignoring update")
		return nil
	}
	return c.Handle(ctx, ev)
}
