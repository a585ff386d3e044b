package pomodoro

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"telegram-focus-bot/internal/messages"
	"telegram-focus-bot/internal/models"
	"telegram-focus-bot/internal/scheduler"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrAlreadyRunning rejects a start while a sequence is active.
	ErrAlreadyRunning = errors.New("pomodoro already running")
	// ErrNoSequence means a button was pressed for a chat with no prepared sequence.
	ErrNoSequence = errors.New("no pomodoro for this chat")
)

const callbackTimeout = 30 * time.Second

// Store is the persistence the state machine needs.
type Store interface {
	CreateSession(ctx context.Context, userID int64, taskID *int64, minutes int,
		typ models.SessionType, start time.Time) (int64, error)
	MarkSession(ctx context.Context, id int64, status models.SessionStatus, end time.Time) error
	GetUserTask(ctx context.Context, userID, id int64) (*models.Task, error)
}

// Timers is the subset of *scheduler.Timers the state machine uses.
type Timers interface {
	Once(key scheduler.Key, after time.Duration, fn func()) error
	Every(key scheduler.Key, interval time.Duration, fn func()) error
	Cancel(keys ...scheduler.Key)
	CancelChat(chatID int64)
}

type chat struct {
	mu sync.Mutex
	rt Runtime
}

// Manager drives the pomodoro state machine of every chat. Button handlers and
// timer callbacks for one chat are serialised by that chat's mutex.
type Manager struct {
	store    Store
	notifier messages.Notifier
	timers   Timers
	clock    clockwork.Clock
	cfg      Config

	mu    sync.Mutex
	chats map[int64]*chat
}

func NewManager(store Store, n messages.Notifier, timers Timers, clock clockwork.Clock, cfg Config) *Manager {
	return &Manager{
		store:    store,
		notifier: n,
		timers:   timers,
		clock:    clock,
		cfg:      cfg.withDefaults(),
		chats:    make(map[int64]*chat),
	}
}

func (m *Manager) chat(chatID int64) *chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		c = &chat{rt: Runtime{State: models.StateIdle}}
		m.chats[chatID] = c
	}
	return c
}

// Snapshot returns a copy of the chat's runtime state. It is an inspection
// hook for tests and debugging; handlers go through the transition methods.
func (m *Manager) Snapshot(chatID int64) Runtime {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rt
}

// Active counts chats with a running or paused sequence.
func (m *Manager) Active() int {
	m.mu.Lock()
	chats := make([]*chat, 0, len(m.chats))
	for _, c := range m.chats {
		chats = append(chats, c)
	}
	m.mu.Unlock()

	n := 0
	for _, c := range chats {
		c.mu.Lock()
		if c.rt.State.Active() {
			n++
		}
		c.mu.Unlock()
	}
	return n
}

func cycleKey(chatID int64) scheduler.Key {
	return scheduler.Key{ChatID: chatID, Purpose: scheduler.PurposeCycle}
}

func progressKey(chatID int64) scheduler.Key {
	return scheduler.Key{ChatID: chatID, Purpose: scheduler.PurposeProgress}
}

// Prepare sets up a sequence in idle state and shows the start button. When
// sourceMsgID is set that message is reused as the status message. A linked
// task that is missing or completed is dropped.
func (m *Manager) Prepare(ctx context.Context, chatID int64, taskID *int64, sourceMsgID int) error {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rt.State.Active() {
		return fmt.Errorf("%w (%s)", ErrAlreadyRunning, c.rt.State)
	}

	var title string
	if taskID != nil {
		task, err := m.store.GetUserTask(ctx, chatID, *taskID)
		switch {
		case err != nil:
			log.Printf("pomodoro %d: load task %d: %v", chatID, *taskID, err)
			taskID = nil
		case task == nil || task.Completed:
			taskID = nil
		default:
			title = task.Description
		}
	}

	c.rt = Runtime{State: models.StateIdle, LinkedTask: taskID, TaskTitle: title, epoch: c.rt.epoch + 1}

	text, kb := startingText(title), m.keyboard(models.StateIdle, false)
	if sourceMsgID != 0 {
		err := m.notifier.Edit(ctx, chatID, sourceMsgID, text, kb)
		if err == nil || errors.Is(err, messages.ErrNotModified) {
			c.rt.MessageID = sourceMsgID
			return nil
		}
		log.Printf("pomodoro %d: reuse message %d: %v", chatID, sourceMsgID, err)
	}
	id, err := m.notifier.Send(ctx, chatID, text, kb)
	if err != nil {
		return fmt.Errorf("send status message: %w", err)
	}
	c.rt.MessageID = id
	return nil
}

// Start begins the first work interval of a prepared sequence.
func (m *Manager) Start(ctx context.Context, chatID int64) error {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rt.MessageID == 0 {
		return ErrNoSequence
	}
	if c.rt.State != models.StateIdle {
		return fmt.Errorf("%w (%s)", ErrAlreadyRunning, c.rt.State)
	}
	m.advanceLocked(ctx, chatID, c)
	return nil
}

// Pause freezes the current phase. Pausing twice is a no-op.
func (m *Manager) Pause(ctx context.Context, chatID int64) error {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()

	rt := &c.rt
	if rt.MessageID == 0 {
		return ErrNoSequence
	}
	if !rt.State.Active() || rt.Paused {
		return nil
	}

	m.disarmLocked(chatID, rt)
	rt.Paused = true
	rt.Remaining = rt.remaining(m.clock.Now())
	m.edit(ctx, chatID, rt, fmt.Sprintf(txtPaused, FormatRemaining(rt.Remaining)), m.keyboard(rt.State, true))
	return nil
}

// Resume re-arms the timers for the time left at pause.
func (m *Manager) Resume(ctx context.Context, chatID int64) error {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()

	rt := &c.rt
	if rt.MessageID == 0 {
		return ErrNoSequence
	}
	if !rt.Paused {
		return nil
	}

	rt.Paused = false
	if rt.Remaining <= 0 {
		m.advanceLocked(ctx, chatID, c)
		return nil
	}
	rt.StartedAt = m.clock.Now()
	rt.Duration = rt.Remaining
	rt.Remaining = 0
	m.armLocked(chatID, rt)
	m.edit(ctx, chatID, rt, txtResumed, m.keyboard(rt.State, false))
	return nil
}

// Stop abandons the sequence from any state.
func (m *Manager) Stop(ctx context.Context, chatID int64) error {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()

	rt := &c.rt
	if rt.MessageID == 0 && !rt.State.Active() {
		return ErrNoSequence
	}
	if rt.State == models.StateWork {
		m.closeSession(ctx, chatID, rt, models.StatusStopped)
	}
	msgID := rt.MessageID
	m.resetLocked(chatID, c)
	if msgID != 0 {
		if err := m.notifier.Edit(ctx, chatID, msgID, txtStopped, nil); err != nil && !errors.Is(err, messages.ErrNotModified) {
			log.Printf("pomodoro %d: edit stop message: %v", chatID, err)
		}
	}
	return nil
}

// onTimer is the one-shot callback that ends a phase.
func (m *Manager) onTimer(chatID int64, epoch uint64) {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rt.epoch != epoch || c.rt.Paused {
		log.Printf("pomodoro %d: stale timer ignored", chatID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()
	m.advanceLocked(ctx, chatID, c)
}

// onProgress is the repeating callback that refreshes the status message.
func (m *Manager) onProgress(chatID int64, epoch uint64) {
	c := m.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()

	rt := &c.rt
	if rt.epoch != epoch || rt.Paused || !rt.State.Active() || rt.MessageID == 0 {
		return
	}
	now := m.clock.Now()
	if rt.remaining(now) <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()
	m.edit(ctx, chatID, rt, m.statusText(rt, now), m.keyboard(rt.State, false))
}

// advanceLocked moves the chat to its next phase.
func (m *Manager) advanceLocked(ctx context.Context, chatID int64, c *chat) {
	rt := &c.rt
	m.disarmLocked(chatID, rt)

	var next models.State
	var notice string
	switch rt.State {
	case models.StateIdle:
		rt.Done = 0
		next, notice = models.StateWork, txtToWork
	case models.StateWork:
		m.closeSession(ctx, chatID, rt, models.StatusCompleted)
		rt.Done++
		if rt.Done%m.cfg.LongBreakEvery == 0 {
			next, notice = models.StateLongBreak, txtToLong
		} else {
			next, notice = models.StateShortBreak, txtToShort
		}
	case models.StateShortBreak:
		next, notice = models.StateWork, txtToWork
	case models.StateLongBreak:
		m.finishLocked(ctx, chatID, c)
		return
	default:
		log.Printf("pomodoro %d: unknown state %q, sequence aborted", chatID, rt.State)
		m.send(ctx, chatID, txtBrokenState, nil)
		m.closeSession(ctx, chatID, rt, models.StatusStopped)
		m.resetLocked(chatID, c)
		return
	}
	m.enterLocked(ctx, chatID, rt, next, notice)
}

func (m *Manager) enterLocked(ctx context.Context, chatID int64, rt *Runtime, next models.State, notice string) {
	now := m.clock.Now()
	d := m.cfg.duration(next)

	if next == models.StateWork {
		id, err := m.store.CreateSession(ctx, chatID, rt.LinkedTask, int(d/time.Minute), models.SessionWork, now)
		if err != nil {
			log.Printf("pomodoro %d: create session: %v", chatID, err)
		} else {
			rt.SessionID = &id
		}
	}

	rt.State = next
	rt.StartedAt = now
	rt.Duration = d
	rt.Paused = false
	rt.Remaining = 0

	m.send(ctx, chatID, notice, nil)
	m.render(ctx, chatID, rt, m.statusText(rt, now))
	m.armLocked(chatID, rt)
	log.Printf("pomodoro %d: %s for %s, %d done", chatID, next, d, rt.Done)
}

// finishLocked ends a sequence after the long break.
func (m *Manager) finishLocked(ctx context.Context, chatID int64, c *chat) {
	rt := &c.rt
	m.send(ctx, chatID, txtSequenceDone, nil)

	if rt.LinkedTask != nil {
		task, err := m.store.GetUserTask(ctx, chatID, *rt.LinkedTask)
		switch {
		case err != nil:
			log.Printf("pomodoro %d: load linked task %d: %v", chatID, *rt.LinkedTask, err)
		case task != nil && !task.Completed:
			m.send(ctx, chatID, fmt.Sprintf(txtMarkTask, task.Description), markTaskKeyboard(task.ID))
		}
	}
	if rt.MessageID != 0 {
		if err := m.notifier.Edit(ctx, chatID, rt.MessageID, txtFinalStatus, nil); err != nil && !errors.Is(err, messages.ErrNotModified) {
			log.Printf("pomodoro %d: edit final message: %v", chatID, err)
		}
	}
	m.resetLocked(chatID, c)
	log.Printf("pomodoro %d: sequence complete", chatID)
}

func (m *Manager) armLocked(chatID int64, rt *Runtime) {
	rt.epoch++
	epoch := rt.epoch
	if err := m.timers.Once(cycleKey(chatID), rt.Duration, func() { m.onTimer(chatID, epoch) }); err != nil {
		log.Printf("pomodoro %d: arm timer: %v", chatID, err)
	}
	if err := m.timers.Every(progressKey(chatID), m.cfg.UpdateEvery, func() { m.onProgress(chatID, epoch) }); err != nil {
		log.Printf("pomodoro %d: arm progress: %v", chatID, err)
	}
}

func (m *Manager) disarmLocked(chatID int64, rt *Runtime) {
	m.timers.Cancel(cycleKey(chatID), progressKey(chatID))
	rt.epoch++
}

// resetLocked drops every timer of the chat and returns it to idle.
func (m *Manager) resetLocked(chatID int64, c *chat) {
	m.timers.CancelChat(chatID)
	c.rt = Runtime{State: models.StateIdle, epoch: c.rt.epoch + 1}
}

func (m *Manager) closeSession(ctx context.Context, chatID int64, rt *Runtime, status models.SessionStatus) {
	if rt.SessionID == nil {
		return
	}
	if err := m.store.MarkSession(ctx, *rt.SessionID, status, m.clock.Now()); err != nil {
		log.Printf("pomodoro %d: mark session %d %s: %v", chatID, *rt.SessionID, status, err)
	}
	rt.SessionID = nil
}

func (m *Manager) send(ctx context.Context, chatID int64, text string, kb models.Keyboard) {
	if _, err := m.notifier.Send(ctx, chatID, text, kb); err != nil {
		log.Printf("pomodoro %d: send: %v", chatID, err)
	}
}

// edit updates the status message; "not modified" is fine.
func (m *Manager) edit(ctx context.Context, chatID int64, rt *Runtime, text string, kb models.Keyboard) {
	if rt.MessageID == 0 {
		return
	}
	err := m.notifier.Edit(ctx, chatID, rt.MessageID, text, kb)
	if err != nil && !errors.Is(err, messages.ErrNotModified) {
		log.Printf("pomodoro %d: edit message %d: %v", chatID, rt.MessageID, err)
	}
}

// render shows text in the status message, sending a fresh one if the old
// message cannot be edited.
func (m *Manager) render(ctx context.Context, chatID int64, rt *Runtime, text string) {
	kb := m.keyboard(rt.State, rt.Paused)
	if rt.MessageID != 0 {
		err := m.notifier.Edit(ctx, chatID, rt.MessageID, text, kb)
		if err == nil || errors.Is(err, messages.ErrNotModified) {
			return
		}
		log.Printf("pomodoro %d: edit message %d: %v", chatID, rt.MessageID, err)
	}
	id, err := m.notifier.Send(ctx, chatID, text, kb)
	if err != nil {
		log.Printf("pomodoro %d: send status: %v", chatID, err)
		return
	}
	rt.MessageID = id
}
