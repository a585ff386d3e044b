package reminder

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"telegram-focus-bot/internal/messages"
	"telegram-focus-bot/internal/models"

	"github.com/jonboulle/clockwork"
)

// DefaultFollowUpDelay is how long after the first reminder the follow-up is due.
const DefaultFollowUpDelay = 3 * time.Hour

// Store is the data access the dispatch worker needs.
type Store interface {
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	MarkReminderSent(ctx context.Context, taskID int64, followUp time.Time) error
	MarkFollowUpSent(ctx context.Context, taskID int64) error
}

// Dispatcher is the single consumer of the reminder queue.
type Dispatcher struct {
	queue         *Queue
	store         Store
	notifier      messages.Notifier
	clock         clockwork.Clock
	followUpDelay time.Duration
}

func NewDispatcher(q *Queue, store Store, n messages.Notifier, clock clockwork.Clock, followUpDelay time.Duration) *Dispatcher {
	if followUpDelay <= 0 {
		followUpDelay = DefaultFollowUpDelay
	}
	return &Dispatcher{queue: q, store: store, notifier: n, clock: clock, followUpDelay: followUpDelay}
}

// Run consumes the queue until ctx is cancelled. Run exactly one per queue.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Println("reminder worker started")
	for {
		id, err := d.queue.Pop(ctx)
		if err != nil {
			log.Println("reminder worker stopped:", err)
			return
		}
		d.handle(ctx, id)
	}
}

// handle processes one id and always releases it.
func (d *Dispatcher) handle(ctx context.Context, id int64) {
	defer d.queue.Release(id)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("reminder: task %d panicked: %v\n%s", id, r, debug.Stack())
		}
	}()

	if err := d.Process(ctx, id); err != nil {
		log.Printf("reminder: task %d: %v", id, err)
	}
}

// Process dispatches whatever reminder is due for the task right now.
func (d *Dispatcher) Process(ctx context.Context, id int64) error {
	task, err := d.store.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if task == nil || task.Completed {
		return nil
	}

	now := d.clock.Now().UTC()
	switch {
	case !task.ReminderSent:
		if task.RemindAt == nil || now.Before(*task.RemindAt) {
			return nil // rescheduled after it was queued
		}
		return d.sendFirst(ctx, task, now)
	case !task.FollowUpSent && task.FollowUpTime != nil && !now.Before(*task.FollowUpTime):
		return d.sendFollowUp(ctx, task)
	}
	return nil
}

func (d *Dispatcher) sendFirst(ctx context.Context, task *models.Task, now time.Time) error {
	if _, err := d.notifier.Send(ctx, task.UserID, FirstReminderText(task), FirstReminderKeyboard(task.ID)); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	followUp := now.Add(d.followUpDelay)
	if err := d.store.MarkReminderSent(ctx, task.ID, followUp); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	log.Printf("reminder: first reminder for task %d sent to %d, follow-up at %s",
		task.ID, task.UserID, followUp.Format(time.RFC3339))
	return nil
}

func (d *Dispatcher) sendFollowUp(ctx context.Context, task *models.Task) error {
	if _, err := d.notifier.Send(ctx, task.UserID, FollowUpText(task), FollowUpKeyboard(task.ID)); err != nil {
		return fmt.Errorf("send follow-up: %w", err)
	}
	if err := d.store.MarkFollowUpSent(ctx, task.ID); err != nil {
		return fmt.Errorf("mark follow-up sent: %w", err)
	}
	log.Printf("reminder: follow-up for task %d sent to %d", task.ID, task.UserID)
	return nil
}

