package pomodoro

import (
	"testing"
	"time"
)

func TestProgressBar(t *testing.T) {
	cases := []struct {
		elapsed, total time.Duration
		want           string
	}{
		{0, 25 * time.Minute, "[░░░░░░░░░░]"},
		{5 * time.Minute, 25 * time.Minute, "[██░░░░░░░░]"},
		{25 * time.Minute, 25 * time.Minute, "[██████████]"},
		{time.Hour, 25 * time.Minute, "[██████████]"},
		{-time.Minute, 25 * time.Minute, "[░░░░░░░░░░]"},
		{time.Minute, 0, "[░░░░░░░░░░]"},
	}
	for _, c := range cases {
		if got := ProgressBar(c.elapsed, c.total, 10); got != c.want {
			t.Errorf("ProgressBar(%v, %v) = %q, want %q", c.elapsed, c.total, got, c.want)
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := map[time.Duration]string{
		25 * time.Minute:                    "25:00",
		4*time.Minute + 59*time.Second + 900: "04:59",
		0:                                   "00:00",
		-time.Second:                        "00:00",
	}
	for d, want := range cases {
		if got := FormatRemaining(d); got != want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", d, got, want)
		}
	}
}
