package scheduler

import (
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Purpose names what a timer is for inside one chat.
type Purpose string

const (
	PurposeCycle    Purpose = "pomodoro_timer"
	PurposeProgress Purpose = "pomodoro_update"
	PurposePoll     Purpose = "reminder_poll"
)

// Key identifies a timer. ChatID 0 is used for process-wide timers.
type Key struct {
	ChatID  int64
	Purpose Purpose
}

func (k Key) String() string {
	return string(k.Purpose) + "_" + strconv.FormatInt(k.ChatID, 10)
}

func chatTag(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// Timers runs one-shot and repeating callbacks on a gocron scheduler. Scheduling
// under a key that is already armed replaces the previous timer.
type Timers struct {
	s     gocron.Scheduler
	clock clockwork.Clock

	mu   sync.Mutex
	jobs map[Key]uuid.UUID
}

func New(clock clockwork.Clock) (*Timers, error) {
	// Создаём новый планировщик
	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(gocron.NewLogger(gocron.LogLevelWarn)),
	)
	if err != nil {
		return nil, err
	}
	return &Timers{s: s, clock: clock, jobs: make(map[Key]uuid.UUID)}, nil
}

func (t *Timers) Start() { t.s.Start() }

// Shutdown stops the scheduler and waits for running callbacks.
func (t *Timers) Shutdown() error { return t.s.Shutdown() }

// Once runs fn once after the given delay.
func (t *Timers) Once(key Key, after time.Duration, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked(key)

	var id uuid.UUID
	run := func() {
		t.mu.Lock()
		if t.jobs[key] == id {
			delete(t.jobs, key)
		}
		t.mu.Unlock()
		t.call(key, fn)
	}

	start := gocron.OneTimeJobStartImmediately()
	if after > 0 {
		start = gocron.OneTimeJobStartDateTime(t.clock.Now().Add(after))
	}
	job, err := t.s.NewJob(gocron.OneTimeJob(start), gocron.NewTask(run), t.options(key)...)
	if errors.Is(err, gocron.ErrOneTimeJobStartDateTimePast) {
		job, err = t.s.NewJob(gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()), gocron.NewTask(run), t.options(key)...)
	}
	if err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}
	id = job.ID()
	t.jobs[key] = id
	return nil
}

// Every runs fn right away and then every interval until cancelled. A run that
// overlaps the previous one is skipped.
func (t *Timers) Every(key Key, interval time.Duration, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked(key)

	opts := append(t.options(key),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	job, err := t.s.NewJob(gocron.DurationJob(interval), gocron.NewTask(func() { t.call(key, fn) }), opts...)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}
	t.jobs[key] = job.ID()
	return nil
}

// Cancel removes the timers under the given keys. Unknown keys are ignored.
func (t *Timers) Cancel(keys ...Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		t.cancelLocked(k)
	}
}

// CancelChat removes every timer armed for a chat.
func (t *Timers) CancelChat(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.jobs {
		if k.ChatID == chatID {
			delete(t.jobs, k)
		}
	}
	t.s.RemoveByTags(chatTag(chatID))
}

// Armed reports whether a timer is scheduled under key.
func (t *Timers) Armed(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.jobs[key]
	return ok
}

func (t *Timers) cancelLocked(key Key) {
	id, ok := t.jobs[key]
	if !ok {
		return
	}
	delete(t.jobs, key)
	if err := t.s.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		log.Printf("scheduler: remove %s: %v", key, err)
	}
}

func (t *Timers) options(key Key) []gocron.JobOption {
	return []gocron.JobOption{
		gocron.WithName(key.String()),
		gocron.WithTags(chatTag(key.ChatID), string(key.Purpose)),
	}
}

// call keeps a panicking callback from taking the scheduler down.
func (t *Timers) call(key Key, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: %s panicked: %v\n%s", key, r, debug.Stack())
		}
	}()
	fn()
}
