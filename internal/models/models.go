package models

import "time"

// Task is the part of a user's task the reminder and pomodoro code reads and writes.
type Task struct {
	ID           int64      `db:"id"             json:"id"`
	UserID       int64      `db:"user_id"        json:"user_id"`
	Description  string     `db:"description"    json:"description"`
	Priority     int        `db:"priority"       json:"priority"`
	Completed    bool       `db:"completed"      json:"completed"`
	RemindAt     *time.Time `db:"remind_at"      json:"remind_at,omitempty"` // UTC, nil -> no reminder
	ReminderSent bool       `db:"reminder_sent"  json:"reminder_sent"`
	FollowUpSent bool       `db:"follow_up_sent" json:"follow_up_sent"`
	FollowUpTime *time.Time `db:"follow_up_time" json:"follow_up_time,omitempty"` // set when the first reminder goes out
	CreatedAt    time.Time  `db:"created_at"     json:"created_at"`
	CompletedAt  *time.Time `db:"completed_at"   json:"completed_at,omitempty"`
}

type SessionType string

const (
	SessionWork       SessionType = "work"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

type SessionStatus string

const (
	StatusStarted   SessionStatus = "started"
	StatusCompleted SessionStatus = "completed"
	StatusStopped   SessionStatus = "stopped"
)

// PomodoroSession is a persisted work interval.
type PomodoroSession struct {
	ID              int64         `db:"id"`
	UserID          int64         `db:"user_id"`
	TaskID          *int64        `db:"task_id"`
	StartTime       time.Time     `db:"start_time"`
	EndTime         *time.Time    `db:"end_time"` // nil while started
	DurationMinutes int           `db:"duration_minutes"`
	Type            SessionType   `db:"session_type"`
	Status          SessionStatus `db:"status"`
}

// Button is one inline choice attached to an outgoing message.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of inline buttons. A nil keyboard means no markup.
type Keyboard [][]Button

func Row(buttons ...Button) []Button { return buttons }
