package handlers

import (
	"context"
	"log"
	"time"

	"telegram-focus-bot/internal/messages"
	"telegram-focus-bot/internal/pomodoro"
	"telegram-focus-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
)

// menuSender is implemented by notifiers that can show a reply keyboard.
type menuSender interface {
	ReplyKeyboard(chatID int64, text string, rows ...[]string) error
}

type Handler struct {
	DB       *storage.DB
	Notify   messages.Notifier
	Pomodoro *pomodoro.Manager
	Loc      *time.Location
	Clock    clockwork.Clock
}

func NewHandler(db *storage.DB, n messages.Notifier, pm *pomodoro.Manager, loc *time.Location, clock clockwork.Clock) *Handler {
	return &Handler{DB: db, Notify: n, Pomodoro: pm, Loc: loc, Clock: clock}
}

// Listen consumes updates until the channel closes or ctx is cancelled.
func (h *Handler) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handlers: update %d panicked: %v", upd.UpdateID, r)
		}
	}()

	switch {
	case upd.Message != nil:
		// === 📌 Обработка текстовых сообщений ===
		h.HandleMessage(ctx, upd.Message)

	case upd.CallbackQuery != nil:
		// === 📌 Обработка callback кнопок ===
		h.HandleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		// a new command abandons any pending input
		if err := h.DB.SetUserState(ctx, chatID, ""); err != nil {
			log.Printf("handlers: clear state %d: %v", chatID, err)
		}
		h.HandleCommand(ctx, chatID, msg.Command(), msg.CommandArguments())
		return
	}

	switch msg.Text {
	case menuTasks:
		h.handleList(ctx, chatID)
	case menuPomodoro:
		h.handlePomodoro(ctx, chatID, "")
	case menuHelp:
		h.send(ctx, chatID, txtHelp)
	default:
		h.HandleText(ctx, msg)
	}
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if _, err := h.Notify.Send(ctx, chatID, text, nil); err != nil {
		log.Printf("handlers: send to %d: %v", chatID, err)
	}
}

func (h *Handler) answer(ctx context.Context, cq *tgbotapi.CallbackQuery, text string, alert bool) {
	if err := h.Notify.Answer(ctx, cq.ID, text, alert); err != nil {
		log.Printf("handlers: answer callback %s: %v", cq.ID, err)
	}
}

func (h *Handler) now() time.Time { return h.Clock.Now() }
