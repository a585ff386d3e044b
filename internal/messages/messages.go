package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-focus-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrNotModified means an edit produced the same text and markup. Callers treat it as a no-op.
	ErrNotModified = errors.New("message is not modified")
	// ErrNotFound means the message to edit no longer exists.
	ErrNotFound = errors.New("message to edit not found")
)

// Notifier sends and edits chat messages.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, kb models.Keyboard) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb models.Keyboard) error
	Answer(ctx context.Context, callbackID, text string, alert bool) error
}

// Telegram is the Notifier backed by the Bot API.
type Telegram struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegram(bot *tgbotapi.BotAPI) *Telegram {
	return &Telegram{Bot: bot}
}

func (t *Telegram) Send(_ context.Context, chatID int64, text string, kb models.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = inlineKeyboard(kb)
	}
	m, err := t.Bot.Send(msg)
	if err != nil {
		return 0, classify(err)
	}
	return m.MessageID, nil
}

func (t *Telegram) Edit(_ context.Context, chatID int64, messageID int, text string, kb models.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if kb != nil {
		markup := inlineKeyboard(kb)
		edit.ReplyMarkup = &markup
	}
	// Request, not Send: the edit response is not always a Message.
	_, err := t.Bot.Request(edit)
	return classify(err)
}

func (t *Telegram) Answer(_ context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	_, err := t.Bot.Request(cb)
	return err
}

// ReplyKeyboard sends text with a persistent reply keyboard (main menu).
func (t *Telegram) ReplyKeyboard(chatID int64, text string, rows ...[]string) error {
	var kb [][]tgbotapi.KeyboardButton
	for _, r := range rows {
		var row []tgbotapi.KeyboardButton
		for _, label := range r {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		kb = append(kb, tgbotapi.NewKeyboardButtonRow(row...))
	}
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = tgbotapi.NewReplyKeyboard(kb...)
	_, err := t.Bot.Send(reply)
	return classify(err)
}

func inlineKeyboard(kb models.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// classify maps Bot API edit failures onto ErrNotModified / ErrNotFound.
func classify(err error) error {
	if err == nil {
		return nil
	}
	desc := err.Error()
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		desc = apiErr.Message
	}
	switch low := strings.ToLower(desc); {
	case strings.Contains(low, "message is not modified"):
		return fmt.Errorf("%w: %s", ErrNotModified, desc)
	case strings.Contains(low, "message to edit not found"), strings.Contains(low, "message not found"):
		return fmt.Errorf("%w: %s", ErrNotFound, desc)
	}
	return err
}
