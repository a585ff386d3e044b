package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"telegram-focus-bot/internal/messages/messagestest"
	"telegram-focus-bot/internal/models"
	"telegram-focus-bot/internal/storage"

	"github.com/jonboulle/clockwork"
)

type fixture struct {
	db     *storage.DB
	clock  *clockwork.FakeClock
	rec    *messagestest.Recorder
	queue  *Queue
	poller *Poller
	disp   *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	rec := &messagestest.Recorder{}
	q := NewQueue()
	return &fixture{
		db:     db,
		clock:  clock,
		rec:    rec,
		queue:  q,
		poller: NewPoller(db, q, clock),
		disp:   NewDispatcher(q, db, rec, clock, DefaultFollowUpDelay),
	}
}

func (f *fixture) task(t *testing.T, userID int64, remindAt time.Time) *models.Task {
	t.Helper()
	ctx := context.Background()
	task, err := f.db.CreateTask(ctx, userID, "написать отчёт", f.clock.Now())
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := f.db.SetReminder(ctx, userID, task.ID, &remindAt); err != nil {
		t.Fatalf("SetReminder failed: %v", err)
	}
	return task
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for f.queue.Len() > 0 {
		id, err := f.queue.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		f.disp.handle(ctx, id)
	}
}

func (f *fixture) reload(t *testing.T, id int64) *models.Task {
	t.Helper()
	task, err := f.db.GetTask(context.Background(), id)
	if err != nil || task == nil {
		t.Fatalf("GetTask(%d) = %v, %v", id, task, err)
	}
	return task
}

func TestFirstReminderPollAndDrain(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, 100, f.clock.Now().Add(-time.Second))

	if n := f.poller.Tick(context.Background()); n != 1 {
		t.Fatalf("expected 1 queued, got %d", n)
	}
	f.drain(t)

	sent := f.rec.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	id := strconv.FormatInt(task.ID, 10)
	if sent[0].ChatID != 100 || !sent[0].HasButton("done:"+id) || !sent[0].HasButton("delay:"+id) {
		t.Errorf("unexpected reminder %+v", sent[0])
	}
	if !strings.Contains(sent[0].Text, "написать отчёт") {
		t.Errorf("expected task description in %q", sent[0].Text)
	}

	got := f.reload(t, task.ID)
	if !got.ReminderSent || got.FollowUpSent {
		t.Errorf("unexpected flags %+v", got)
	}
	want := f.clock.Now().Add(3 * time.Hour)
	if got.FollowUpTime == nil || !got.FollowUpTime.Equal(want) {
		t.Errorf("expected follow-up at %v, got %v", want, got.FollowUpTime)
	}
	if f.queue.InFlight() != 0 {
		t.Errorf("expected in-flight set to be empty, got %d", f.queue.InFlight())
	}
}

func TestDuplicateEnqueueDispatchesOnce(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, 100, f.clock.Now().Add(-time.Minute))

	f.poller.Tick(context.Background())
	f.poller.Tick(context.Background())
	f.queue.Push(task.ID)
	if f.queue.Len() != 1 {
		t.Fatalf("expected duplicates to collapse, queue has %d", f.queue.Len())
	}
	f.drain(t)

	if n := len(f.rec.Sent()); n != 1 {
		t.Errorf("expected one send, got %d", n)
	}
}

func TestProcessSkipsAlreadyHandledTask(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, 100, f.clock.Now().Add(-time.Minute))
	ctx := context.Background()

	if err := f.disp.Process(ctx, task.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	// a second pass right away finds nothing due
	if err := f.disp.Process(ctx, task.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if n := len(f.rec.Sent()); n != 1 {
		t.Errorf("expected one send, got %d", n)
	}
}

func TestFollowUpAfterDelay(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, 100, f.clock.Now().Add(-time.Second))
	ctx := context.Background()

	f.poller.Tick(ctx)
	f.drain(t)

	f.clock.Advance(2 * time.Hour)
	if n := f.poller.Tick(ctx); n != 0 {
		t.Fatalf("follow-up queued too early (%d)", n)
	}

	f.clock.Advance(time.Hour)
	if n := f.poller.Tick(ctx); n != 1 {
		t.Fatalf("expected follow-up to be queued, got %d", n)
	}
	f.drain(t)

	sent := f.rec.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	id := strconv.FormatInt(task.ID, 10)
	fu := sent[1]
	if !fu.HasButton("done:"+id) || !fu.HasButton("delay_h:1:"+id) || !fu.HasButton("delay_h:3:"+id) {
		t.Errorf("unexpected follow-up keyboard %+v", fu.Keyboard)
	}
	if got := f.reload(t, task.ID); !got.FollowUpSent {
		t.Error("expected follow_up_sent")
	}

	f.clock.Advance(24 * time.Hour)
	if n := f.poller.Tick(ctx); n != 0 {
		t.Errorf("nothing should be due after the follow-up, got %d", n)
	}
}

func TestCompletedTasksAreNotReminded(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, 100, f.clock.Now().Add(-time.Second))
	ctx := context.Background()

	f.queue.Push(task.ID)
	if _, err := f.db.MarkTaskDone(ctx, 100, task.ID, f.clock.Now()); err != nil {
		t.Fatalf("MarkTaskDone failed: %v", err)
	}
	f.drain(t)
	if n := f.poller.Tick(ctx); n != 0 {
		t.Errorf("completed task was queued")
	}
	if n := len(f.rec.Sent()); n != 0 {
		t.Errorf("expected no messages, got %d", n)
	}
}

func TestSendFailureLeavesTaskEligible(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, 100, f.clock.Now().Add(-time.Second))
	ctx := context.Background()

	f.rec.SendErr = errors.New("Forbidden: bot was blocked by the user")
	f.poller.Tick(ctx)
	f.drain(t)

	if got := f.reload(t, task.ID); got.ReminderSent {
		t.Fatal("reminder_sent must stay false after a failed send")
	}

	f.rec.SendErr = nil
	f.clock.Advance(30 * time.Second)
	if n := f.poller.Tick(ctx); n != 1 {
		t.Fatalf("expected task to be picked up again, got %d", n)
	}
	f.drain(t)
	if n := len(f.rec.Sent()); n != 1 {
		t.Errorf("expected one successful send, got %d", n)
	}
}

func TestRunProcessesUntilCancelled(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, 100, f.clock.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.disp.Run(ctx)
		close(done)
	}()

	f.queue.Push(task.ID)
	deadline := time.After(3 * time.Second)
	for len(f.rec.Sent()) == 0 {
		select {
		case <-deadline:
			t.Fatal("worker did not dispatch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
