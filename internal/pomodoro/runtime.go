package pomodoro

import (
	"time"

	"telegram-focus-bot/internal/models"
)

// Config holds the phase lengths of a sequence.
type Config struct {
	Work           time.Duration `yaml:"work"`
	ShortBreak     time.Duration `yaml:"short_break"`
	LongBreak      time.Duration `yaml:"long_break"`
	LongBreakEvery int           `yaml:"long_break_every"`
	UpdateEvery    time.Duration `yaml:"update_every"`
}

func DefaultConfig() Config {
	return Config{
		Work:           25 * time.Minute,
		ShortBreak:     5 * time.Minute,
		LongBreak:      15 * time.Minute,
		LongBreakEvery: 4,
		UpdateEvery:    5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Work <= 0 {
		c.Work = def.Work
	}
	if c.ShortBreak <= 0 {
		c.ShortBreak = def.ShortBreak
	}
	if c.LongBreak <= 0 {
		c.LongBreak = def.LongBreak
	}
	if c.LongBreakEvery <= 0 {
		c.LongBreakEvery = def.LongBreakEvery
	}
	if c.UpdateEvery <= 0 {
		c.UpdateEvery = def.UpdateEvery
	}
	return c
}

func (c Config) duration(s models.State) time.Duration {
	switch s {
	case models.StateWork:
		return c.Work
	case models.StateShortBreak:
		return c.ShortBreak
	case models.StateLongBreak:
		return c.LongBreak
	}
	return 0
}

// Runtime is the in-memory pomodoro state of one chat. It is lost on restart.
//
// In StateIdle only LinkedTask, TaskTitle and MessageID are meaningful (set by
// Prepare). In the timed states StartedAt/Duration describe the current run;
// while Paused, Remaining holds what was left when the pause began.
type Runtime struct {
	State      models.State
	Paused     bool
	StartedAt  time.Time
	Duration   time.Duration
	Remaining  time.Duration
	Done       int // completed work intervals in this sequence
	LinkedTask *int64
	TaskTitle  string
	SessionID  *int64 // open work session
	MessageID  int    // status message edited in place

	// epoch changes whenever timers are re-armed or dropped; a callback
	// carrying an older epoch is stale.
	epoch uint64
}

func (rt *Runtime) elapsed(now time.Time) time.Duration {
	e := now.Sub(rt.StartedAt)
	if e < 0 {
		return 0
	}
	return e
}

func (rt *Runtime) remaining(now time.Time) time.Duration {
	r := rt.Duration - rt.elapsed(now)
	if r < 0 {
		return 0
	}
	return r
}
