package models

// State is the primary pomodoro phase of a chat.
type State string

const (
	StateIdle       State = "idle"
	StateWork       State = "work"
	StateShortBreak State = "short_break"
	StateLongBreak  State = "long_break"
)

// Active reports whether a timer phase is running (or paused) in this state.
func (s State) Active() bool {
	switch s {
	case StateWork, StateShortBreak, StateLongBreak:
		return true
	}
	return false
}

// Pending text input the bot waits for in a chat (stored in user_states).
const (
	InputDelayPrefix  = "wait_delay:"
	InputRemindPrefix = "wait_remind:"
)
