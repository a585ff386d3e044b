package reminder

import (
	"context"
	"log"
	"time"

	"telegram-focus-bot/internal/models"
	"telegram-focus-bot/internal/scheduler"

	"github.com/jonboulle/clockwork"
)

// DefaultPollInterval is the fixed cadence of the due-reminder scan.
const DefaultPollInterval = 30 * time.Second

// Finder is the read side of reminder storage.
type Finder interface {
	FindDueFirstReminders(ctx context.Context, now time.Time) ([]models.Task, error)
	FindDueFollowUps(ctx context.Context, now time.Time) ([]models.Task, error)
}

// Poller scans storage for due reminders and feeds the queue.
type Poller struct {
	finder  Finder
	queue   *Queue
	clock   clockwork.Clock
	timeout time.Duration
}

func NewPoller(f Finder, q *Queue, clock clockwork.Clock) *Poller {
	return &Poller{finder: f, queue: q, clock: clock, timeout: 20 * time.Second}
}

// Start registers the scan as a repeating job. It runs immediately and then at
// a fixed interval, whatever the outcome of the previous scan.
func (p *Poller) Start(timers *scheduler.Timers, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return timers.Every(scheduler.Key{Purpose: scheduler.PurposePoll}, interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		p.Tick(ctx)
	})
}

// Tick runs one scan. It returns the number of ids newly queued; failures are logged.
func (p *Poller) Tick(ctx context.Context) int {
	now := p.clock.Now().UTC()

	first, err := p.finder.FindDueFirstReminders(ctx, now)
	if err != nil {
		log.Printf("reminder poll: find first reminders: %v", err)
	}
	followUps, err := p.finder.FindDueFollowUps(ctx, now)
	if err != nil {
		log.Printf("reminder poll: find follow-ups: %v", err)
	}

	queued := 0
	for _, t := range append(first, followUps...) {
		if p.queue.Push(t.ID) {
			queued++
		}
	}
	if len(first)+len(followUps) > 0 {
		log.Printf("reminder poll: %d first, %d follow-up due, %d queued", len(first), len(followUps), queued)
	}
	return queued
}
