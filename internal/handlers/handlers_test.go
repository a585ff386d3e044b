package handlers

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"telegram-focus-bot/internal/messages/messagestest"
	"telegram-focus-bot/internal/models"
	"telegram-focus-bot/internal/pomodoro"
	"telegram-focus-bot/internal/scheduler"
	"telegram-focus-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
)

const chat int64 = 500

type nopTimers struct {
	mu    sync.Mutex
	armed map[scheduler.Key]time.Duration
}

func (n *nopTimers) Once(key scheduler.Key, after time.Duration, _ func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.armed[key] = after
	return nil
}

func (n *nopTimers) Every(key scheduler.Key, interval time.Duration, _ func()) error {
	return n.Once(key, interval, nil)
}

func (n *nopTimers) Cancel(keys ...scheduler.Key) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, k := range keys {
		delete(n.armed, k)
	}
}

func (n *nopTimers) CancelChat(chatID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for k := range n.armed {
		if k.ChatID == chatID {
			delete(n.armed, k)
		}
	}
}

type fixture struct {
	h     *Handler
	db    *storage.DB
	rec   *messagestest.Recorder
	clock *clockwork.FakeClock
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
	pm := pomodoro.NewManager(db, rec, &nopTimers{armed: map[scheduler.Key]time.Duration{}}, clock, pomodoro.DefaultConfig())
	loc := time.FixedZone("UTC+3", 3*60*60)
	return &fixture{h: NewHandler(db, rec, pm, loc, clock), db: db, rec: rec, clock: clock}
}

func (f *fixture) say(text string) {
	msg := &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: chat}, Text: text}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (f *fixture) press(data string) {
	cq := &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: chat}},
	}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: cq})
}

func (f *fixture) lastText(t *testing.T) string {
	t.Helper()
	sent := f.rec.Sent()
	if len(sent) == 0 {
		t.Fatal("nothing sent")
	}
	return sent[len(sent)-1].Text
}

func (f *fixture) task(t *testing.T, id int64) *models.Task {
	t.Helper()
	task, err := f.db.GetTask(context.Background(), id)
	if err != nil || task == nil {
		t.Fatalf("GetTask(%d) = %v, %v", id, task, err)
	}
	return task
}

func (f *fixture) state(t *testing.T) string {
	t.Helper()
	st, err := f.db.GetUserState(context.Background(), chat)
	if err != nil {
		t.Fatalf("GetUserState failed: %v", err)
	}
	return st
}

func TestAddListDone(t *testing.T) {
	f := newFixture(t)

	f.say("/add купить молоко")
	if got := f.lastText(t); !strings.Contains(got, "#1") || !strings.Contains(got, "купить молоко") {
		t.Fatalf("unexpected reply %q", got)
	}

	f.say("/list")
	if got := f.lastText(t); !strings.Contains(got, "#1 купить молоко") || !strings.Contains(got, "/done_1") {
		t.Errorf("unexpected list %q", got)
	}

	f.say("/done_1")
	if got := f.lastText(t); !strings.Contains(got, "выполнена!") {
		t.Errorf("unexpected reply %q", got)
	}
	task := f.task(t, 1)
	if !task.Completed || task.CompletedAt == nil || !task.ReminderSent || !task.FollowUpSent {
		t.Errorf("unexpected task after done %+v", task)
	}

	f.say("/done 1")
	if got := f.lastText(t); !strings.Contains(got, "уже выполнена") {
		t.Errorf("expected already-done reply, got %q", got)
	}

	f.say("/list")
	if got := f.lastText(t); got != txtNoTasks {
		t.Errorf("expected empty list, got %q", got)
	}
}

func TestDoneOtherUsersTask(t *testing.T) {
	f := newFixture(t)
	if _, err := f.db.CreateTask(context.Background(), 999, "чужая", f.clock.Now()); err != nil {
		t.Fatal(err)
	}
	f.say("/done 1")
	if got := f.lastText(t); got != txtTaskNotFound {
		t.Errorf("expected not found, got %q", got)
	}
	if f.task(t, 1).Completed {
		t.Error("another user's task was completed")
	}
}

func TestRemindCommand(t *testing.T) {
	f := newFixture(t)
	f.say("/add отчёт")

	f.say("/remind 1 18:30")
	task := f.task(t, 1)
	want := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	if task.RemindAt == nil || !task.RemindAt.Equal(want) {
		t.Fatalf("expected remind_at %v, got %v", want, task.RemindAt)
	}
	if got := f.lastText(t); !strings.Contains(got, "19.10.2026 18:30") {
		t.Errorf("expected local time in reply, got %q", got)
	}

	f.say("/remind 1 off")
	if task := f.task(t, 1); task.RemindAt != nil {
		t.Errorf("expected reminder cleared, got %v", task.RemindAt)
	}
}

func TestRemindPendingInput(t *testing.T) {
	f := newFixture(t)
	f.say("/add отчёт")

	f.say("/remind_1")
	if st := f.state(t); st != "wait_remind:1" {
		t.Fatalf("expected pending state, got %q", st)
	}

	f.say("когда-нибудь")
	if got := f.lastText(t); got != txtBadRemind {
		t.Errorf("expected format hint, got %q", got)
	}
	if st := f.state(t); st != "wait_remind:1" {
		t.Errorf("malformed input must keep state, got %q", st)
	}

	f.say("21.10.2026 10:00")
	if st := f.state(t); st != "" {
		t.Errorf("expected state cleared, got %q", st)
	}
	want := time.Date(2026, 10, 21, 7, 0, 0, 0, time.UTC)
	if task := f.task(t, 1); task.RemindAt == nil || !task.RemindAt.Equal(want) {
		t.Errorf("expected remind_at %v, got %v", want, task.RemindAt)
	}
}

func TestDelayButtonThenText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.say("/add отчёт")
	if err := f.db.MarkReminderSent(ctx, 1, f.clock.Now().Add(3*time.Hour)); err != nil {
		t.Fatal(err)
	}

	f.press("delay:1")
	if st := f.state(t); st != "wait_delay:1" {
		t.Fatalf("expected pending delay, got %q", st)
	}
	if a := f.rec.Answers(); len(a) != 1 || a[0].CallbackID != "cb-delay:1" {
		t.Errorf("expected callback answered, got %+v", a)
	}

	f.say("полчаса")
	if got := f.lastText(t); got != txtBadDelay {
		t.Errorf("expected delay hint, got %q", got)
	}
	if st := f.state(t); st != "wait_delay:1" {
		t.Errorf("malformed input must keep state, got %q", st)
	}

	f.say("2")
	task := f.task(t, 1)
	if task.RemindAt == nil || !task.RemindAt.Equal(f.clock.Now().Add(2*time.Hour)) {
		t.Errorf("unexpected remind_at %v", task.RemindAt)
	}
	if task.ReminderSent || task.FollowUpSent || task.FollowUpTime != nil {
		t.Errorf("expected reminder cycle reset, got %+v", task)
	}
	if st := f.state(t); st != "" {
		t.Errorf("expected state cleared, got %q", st)
	}
}

func TestDelayHoursButton(t *testing.T) {
	f := newFixture(t)
	f.say("/add отчёт")

	f.press("delay_h:3:1")
	task := f.task(t, 1)
	if task.RemindAt == nil || !task.RemindAt.Equal(f.clock.Now().Add(3*time.Hour)) {
		t.Errorf("unexpected remind_at %v", task.RemindAt)
	}
	edits := f.rec.Edits()
	if len(edits) != 1 || edits[0].MessageID != 42 || !strings.Contains(edits[0].Text, "перенесено") {
		t.Errorf("expected reminder message edited, got %+v", edits)
	}
}

func TestDoneButton(t *testing.T) {
	f := newFixture(t)
	f.say("/add отчёт")

	f.press("done:1")
	if !f.task(t, 1).Completed {
		t.Error("expected task completed")
	}
	m, ok := f.rec.Last("выполнена")
	if !ok || m.MessageID != 42 {
		t.Errorf("expected edited reminder, got %+v", m)
	}
}

func TestPomodoroFlow(t *testing.T) {
	f := newFixture(t)
	f.say("/add глава 3")

	f.say("/pomodoro 1")
	status, ok := f.rec.Last("глава 3")
	if !ok || !status.HasButton(pomodoro.CbStartWork) {
		t.Fatalf("expected status with start button, got %+v", status)
	}

	f.press(pomodoro.CbStartWork)
	rt := f.h.Pomodoro.Snapshot(chat)
	if rt.State != models.StateWork || rt.LinkedTask == nil || *rt.LinkedTask != 1 {
		t.Fatalf("unexpected runtime %+v", rt)
	}

	f.say("/pomodoro")
	if got := f.lastText(t); got != txtPomActive {
		t.Errorf("expected already running, got %q", got)
	}

	f.press(pomodoro.CbStop)
	if rt := f.h.Pomodoro.Snapshot(chat); rt.State != models.StateIdle {
		t.Errorf("expected idle after stop, got %s", rt.State)
	}

	f.press(pomodoro.CbPause)
	a := f.rec.Answers()
	if last := a[len(a)-1]; !last.Alert || last.Text != txtPomNoSeries {
		t.Errorf("expected alert for missing sequence, got %+v", last)
	}
}

func TestPomodoroWithUnknownTask(t *testing.T) {
	f := newFixture(t)
	f.say("/pomodoro 7")

	if _, ok := f.rec.Last("#7 не найдена"); !ok {
		t.Error("expected warning about task")
	}
	if rt := f.h.Pomodoro.Snapshot(chat); rt.MessageID == 0 || rt.LinkedTask != nil {
		t.Errorf("expected unlinked prepared sequence, got %+v", rt)
	}
}

func TestSkipDoneButtonKeepsTask(t *testing.T) {
	f := newFixture(t)
	f.say("/add глава 3")

	f.press(pomodoro.CbTaskSkip + "1")
	if f.task(t, 1).Completed {
		t.Error("task must stay active")
	}
	if _, ok := f.rec.Last("остаётся активной"); !ok {
		t.Error("expected confirmation")
	}

	f.press(pomodoro.CbTaskDone + "1")
	if !f.task(t, 1).Completed {
		t.Error("expected task completed")
	}
}

func TestCommandClearsPendingInput(t *testing.T) {
	f := newFixture(t)
	f.say("/add отчёт")
	f.press("delay:1")

	f.say("/list")
	if st := f.state(t); st != "" {
		t.Errorf("expected command to clear pending input, got %q", st)
	}
}
