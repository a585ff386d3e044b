package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"telegram-focus-bot/internal/models"
	"telegram-focus-bot/internal/pomodoro"
	"telegram-focus-bot/internal/storage"
	"telegram-focus-bot/internal/utils"
)

func (h *Handler) HandleCommand(ctx context.Context, chatID int64, cmd, args string) {
	name, suffix := splitCommand(cmd)
	if suffix != "" && args == "" {
		args = suffix
	} else if suffix != "" {
		args = suffix + " " + args
	}

	switch name {
	case "start":
		h.HandleStart(ctx, chatID)
	case "help":
		h.send(ctx, chatID, txtHelp)
	case "add":
		h.handleAdd(ctx, chatID, args)
	case "list":
		h.handleList(ctx, chatID)
	case "done":
		h.handleDone(ctx, chatID, args)
	case "remind":
		h.handleRemind(ctx, chatID, args)
	case "pomodoro":
		h.handlePomodoro(ctx, chatID, args)
	}
}

// ---------------- /start --------------------
func (h *Handler) HandleStart(ctx context.Context, chatID int64) {
	if m, ok := h.Notify.(menuSender); ok {
		if err := m.ReplyKeyboard(chatID, txtMenu, mainMenu()...); err != nil {
			log.Printf("handlers: menu for %d: %v", chatID, err)
		}
		return
	}
	h.send(ctx, chatID, txtMenu)
}

func (h *Handler) handleAdd(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		h.send(ctx, chatID, txtAddHint)
		return
	}
	task, err := h.DB.CreateTask(ctx, chatID, text, h.now())
	if err != nil {
		log.Printf("handlers: create task for %d: %v", chatID, err)
		h.send(ctx, chatID, txtError)
		return
	}
	h.send(ctx, chatID, fmt.Sprintf(txtTaskAdded, task.ID, task.Description))
}

func (h *Handler) handleList(ctx context.Context, chatID int64) {
	tasks, err := h.DB.ListActiveTasks(ctx, chatID)
	if err != nil {
		log.Printf("handlers: list tasks for %d: %v", chatID, err)
		h.send(ctx, chatID, txtError)
		return
	}
	h.send(ctx, chatID, h.taskList(tasks))
}

func (h *Handler) handleDone(ctx context.Context, chatID int64, args string) {
	id, ok := parseID(args)
	if !ok {
		h.send(ctx, chatID, txtIDHint)
		return
	}
	h.send(ctx, chatID, h.completeTask(ctx, chatID, id))
}

// completeTask marks a task done and returns the reply for the user.
func (h *Handler) completeTask(ctx context.Context, chatID, id int64) string {
	task, err := h.DB.GetUserTask(ctx, chatID, id)
	if err != nil {
		log.Printf("handlers: load task %d: %v", id, err)
		return txtError
	}
	if task == nil {
		return txtTaskNotFound
	}
	changed, err := h.DB.MarkTaskDone(ctx, chatID, id, h.now())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return txtTaskNotFound
	case err != nil:
		log.Printf("handlers: mark task %d done: %v", id, err)
		return txtError
	case !changed:
		return fmt.Sprintf(txtAlreadyDone, task.Description)
	}
	log.Printf("handlers: task %d done by %d", id, chatID)
	return fmt.Sprintf(txtTaskDone, task.Description)
}

func (h *Handler) handleRemind(ctx context.Context, chatID int64, args string) {
	idStr, when, _ := strings.Cut(strings.TrimSpace(args), " ")
	id, ok := parseID(idStr)
	if !ok {
		h.send(ctx, chatID, txtIDHint)
		return
	}
	task, err := h.DB.GetUserTask(ctx, chatID, id)
	if err != nil {
		log.Printf("handlers: load task %d: %v", id, err)
		h.send(ctx, chatID, txtError)
		return
	}
	if task == nil || task.Completed {
		h.send(ctx, chatID, txtTaskNotFound)
		return
	}

	if strings.TrimSpace(when) == "" {
		if err := h.DB.SetUserState(ctx, chatID, fmt.Sprintf("%s%d", models.InputRemindPrefix, id)); err != nil {
			log.Printf("handlers: set state %d: %v", chatID, err)
			h.send(ctx, chatID, txtError)
			return
		}
		h.send(ctx, chatID, fmt.Sprintf(txtAskRemind, task.Description))
		return
	}
	h.applyRemind(ctx, chatID, task, when)
}

// applyRemind sets or clears the reminder from user input. It reports false
// when the input could not be parsed.
func (h *Handler) applyRemind(ctx context.Context, chatID int64, task *models.Task, input string) bool {
	if strings.EqualFold(strings.TrimSpace(input), "off") {
		if err := h.DB.SetReminder(ctx, chatID, task.ID, nil); err != nil {
			h.reminderFailed(ctx, chatID, task.ID, err)
			return true
		}
		h.send(ctx, chatID, txtRemindOff)
		return true
	}

	at, err := utils.ParseRemindAt(input, h.now(), h.Loc)
	if err != nil {
		h.send(ctx, chatID, txtBadRemind)
		return false
	}
	if err := h.DB.SetReminder(ctx, chatID, task.ID, &at); err != nil {
		h.reminderFailed(ctx, chatID, task.ID, err)
		return true
	}
	h.send(ctx, chatID, fmt.Sprintf(txtRemindSet, task.Description, h.local(at)))
	return true
}

func (h *Handler) reminderFailed(ctx context.Context, chatID, taskID int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.send(ctx, chatID, txtTaskNotFound)
		return
	}
	log.Printf("handlers: set reminder for task %d: %v", taskID, err)
	h.send(ctx, chatID, txtError)
}

func (h *Handler) handlePomodoro(ctx context.Context, chatID int64, args string) {
	var taskID *int64
	if s := strings.TrimSpace(args); s != "" {
		id, ok := parseID(s)
		if !ok {
			h.send(ctx, chatID, txtIDHint)
			return
		}
		task, err := h.DB.GetUserTask(ctx, chatID, id)
		if err != nil || task == nil || task.Completed {
			h.send(ctx, chatID, fmt.Sprintf(txtTaskUnlink, id))
		} else {
			taskID = &id
		}
	}

	err := h.Pomodoro.Prepare(ctx, chatID, taskID, 0)
	switch {
	case errors.Is(err, pomodoro.ErrAlreadyRunning):
		h.send(ctx, chatID, txtPomActive)
	case err != nil:
		log.Printf("handlers: prepare pomodoro for %d: %v", chatID, err)
		h.send(ctx, chatID, txtPomFailed)
	}
}
