package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"telegram-focus-bot/internal/messages"
	"telegram-focus-bot/internal/models"
	"telegram-focus-bot/internal/pomodoro"
	"telegram-focus-bot/internal/reminder"
	"telegram-focus-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		h.answer(ctx, cq, "", false)
		return
	}
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	data := cq.Data

	switch {
	case strings.HasPrefix(data, pomodoro.CbPrefix):
		h.handlePomodoroButton(ctx, cq, chatID, data)
		return
	case strings.HasPrefix(data, reminder.CbDone):
		h.handleDoneButton(ctx, chatID, msgID, strings.TrimPrefix(data, reminder.CbDone))
	case strings.HasPrefix(data, reminder.CbDelayH):
		h.handleDelayHours(ctx, chatID, msgID, strings.TrimPrefix(data, reminder.CbDelayH))
	case strings.HasPrefix(data, reminder.CbDelay):
		h.handleDelayAsk(ctx, chatID, strings.TrimPrefix(data, reminder.CbDelay))
	case strings.HasPrefix(data, pomodoro.CbTaskDone):
		h.handleDoneButton(ctx, chatID, msgID, strings.TrimPrefix(data, pomodoro.CbTaskDone))
	case strings.HasPrefix(data, pomodoro.CbTaskSkip):
		h.handleSkipDone(ctx, chatID, msgID, strings.TrimPrefix(data, pomodoro.CbTaskSkip))
	default:
		log.Printf("handlers: unknown callback %q from %d", data, chatID)
	}

	// always answer callback to remove 'loading...'
	h.answer(ctx, cq, "", false)
}

func (h *Handler) handlePomodoroButton(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID int64, data string) {
	var err error
	switch data {
	case pomodoro.CbStartWork:
		err = h.Pomodoro.Start(ctx, chatID)
	case pomodoro.CbPause:
		err = h.Pomodoro.Pause(ctx, chatID)
	case pomodoro.CbResume:
		err = h.Pomodoro.Resume(ctx, chatID)
	case pomodoro.CbStop:
		err = h.Pomodoro.Stop(ctx, chatID)
	default:
		log.Printf("handlers: unknown pomodoro button %q", data)
	}

	switch {
	case errors.Is(err, pomodoro.ErrNoSequence):
		h.answer(ctx, cq, txtPomNoSeries, true)
	case errors.Is(err, pomodoro.ErrAlreadyRunning):
		h.answer(ctx, cq, txtPomActive, false)
	case err != nil:
		log.Printf("handlers: %s for %d: %v", data, chatID, err)
		h.answer(ctx, cq, txtError, true)
	default:
		h.answer(ctx, cq, "", false)
	}
}

// edit replaces the text of the message the button was on.
func (h *Handler) edit(ctx context.Context, chatID int64, msgID int, text string) {
	err := h.Notify.Edit(ctx, chatID, msgID, text, nil)
	if err != nil && !errors.Is(err, messages.ErrNotModified) {
		log.Printf("handlers: edit %d/%d: %v", chatID, msgID, err)
		h.send(ctx, chatID, text)
	}
}

func (h *Handler) handleDoneButton(ctx context.Context, chatID int64, msgID int, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		log.Printf("handlers: bad task id %q", idStr)
		return
	}
	h.edit(ctx, chatID, msgID, h.completeTask(ctx, chatID, id))
}

func (h *Handler) handleSkipDone(ctx context.Context, chatID int64, msgID int, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		return
	}
	task, err := h.DB.GetUserTask(ctx, chatID, id)
	if err != nil || task == nil {
		h.edit(ctx, chatID, msgID, txtTaskNotFound)
		return
	}
	h.edit(ctx, chatID, msgID, fmt.Sprintf(txtTaskKept, task.Description))
}

func (h *Handler) handleDelayAsk(ctx context.Context, chatID int64, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		return
	}
	if err := h.DB.SetUserState(ctx, chatID, models.InputDelayPrefix+strconv.FormatInt(id, 10)); err != nil {
		log.Printf("handlers: set state %d: %v", chatID, err)
		h.send(ctx, chatID, txtError)
		return
	}
	h.send(ctx, chatID, txtAskDelay)
}

// handleDelayHours serves delay_h:<hours>:<taskID>.
func (h *Handler) handleDelayHours(ctx context.Context, chatID int64, msgID int, rest string) {
	hStr, idStr, _ := strings.Cut(rest, ":")
	hours, err := strconv.Atoi(hStr)
	id, ok := parseID(idStr)
	if err != nil || hours <= 0 || !ok {
		log.Printf("handlers: bad delay callback %q", rest)
		return
	}
	at := h.now().Add(time.Duration(hours) * time.Hour).UTC()
	if err := h.DB.SetReminder(ctx, chatID, id, &at); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.edit(ctx, chatID, msgID, txtTaskNotFound)
			return
		}
		log.Printf("handlers: delay task %d: %v", id, err)
		h.send(ctx, chatID, txtError)
		return
	}
	h.edit(ctx, chatID, msgID, fmt.Sprintf(txtDelayed, h.local(at)))
}
