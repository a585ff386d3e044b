package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"telegram-focus-bot/internal/models"
	"telegram-focus-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleText completes the input the chat was asked for. Malformed input keeps
// the pending state so the user can retry.
func (h *Handler) HandleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	state, err := h.DB.GetUserState(ctx, chatID)
	if err != nil {
		log.Printf("handlers: get state %d: %v", chatID, err)
		return
	}
	if state == "" {
		return
	}

	done := true
	switch {
	case strings.HasPrefix(state, models.InputDelayPrefix):
		done = h.delayFromText(ctx, chatID, strings.TrimPrefix(state, models.InputDelayPrefix), msg.Text)
	case strings.HasPrefix(state, models.InputRemindPrefix):
		done = h.remindFromText(ctx, chatID, strings.TrimPrefix(state, models.InputRemindPrefix), msg.Text)
	default:
		log.Printf("handlers: dropping unknown state %q of %d", state, chatID)
	}
	if !done {
		return
	}
	if err := h.DB.SetUserState(ctx, chatID, ""); err != nil {
		log.Printf("handlers: clear state %d: %v", chatID, err)
	}
}

func (h *Handler) delayFromText(ctx context.Context, chatID int64, idStr, input string) bool {
	id, ok := parseID(idStr)
	if !ok {
		return true
	}
	at, err := utils.ParseDelay(input, h.now(), h.Loc)
	if err != nil {
		h.send(ctx, chatID, txtBadDelay)
		return false
	}
	if err := h.DB.SetReminder(ctx, chatID, id, &at); err != nil {
		h.reminderFailed(ctx, chatID, id, err)
		return true
	}
	h.send(ctx, chatID, fmt.Sprintf(txtDelayed, h.local(at)))
	return true
}

func (h *Handler) remindFromText(ctx context.Context, chatID int64, idStr, input string) bool {
	id, ok := parseID(idStr)
	if !ok {
		return true
	}
	task, err := h.DB.GetUserTask(ctx, chatID, id)
	if err != nil {
		log.Printf("handlers: load task %d: %v", id, err)
		h.send(ctx, chatID, txtError)
		return false
	}
	if task == nil {
		h.send(ctx, chatID, txtTaskNotFound)
		return true
	}
	return h.applyRemind(ctx, chatID, task, input)
}
