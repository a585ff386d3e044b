package pomodoro

import (
	"fmt"
	"strings"
	"time"
)

const barWidth = 10

// ProgressBar renders elapsed/total as a fixed-width bar of █ and ░ cells.
func ProgressBar(elapsed, total time.Duration, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat("░", width) + "]"
	}
	filled := int(float64(width) * float64(elapsed) / float64(total))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// FormatRemaining renders d as MM:SS, dropping fractions of a second.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
