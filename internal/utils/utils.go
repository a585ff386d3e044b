package utils

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
)

// ErrBadTime is returned for user input that matches none of the accepted formats.
var ErrBadTime = errors.New("bad time format")

// Must stops the process on a startup error.
func Must(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

const (
	clockLayout = "15:04"
	dotLayout   = "02.01.2006 15:04"
	isoLayout   = "2006-01-02 15:04"
)

// ParseRemindAt reads "HH:MM", "dd.mm.YYYY HH:MM" or "YYYY-MM-DD HH:MM" in loc.
// A bare clock time that already passed today means tomorrow. The result is UTC.
func ParseRemindAt(input string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.Join(strings.Fields(input), " ")
	if !strings.Contains(s, " ") {
		return nextClock(s, now, loc)
	}
	for _, layout := range []string{dotLayout, isoLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrBadTime
}

// ParseDelay reads a whole number of hours from now or an "HH:MM" clock time.
func ParseDelay(input string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		hours, err := strconv.Atoi(s)
		if err != nil || hours > 24*366 {
			return time.Time{}, ErrBadTime
		}
		return now.Add(time.Duration(hours) * time.Hour).UTC(), nil
	}
	return nextClock(s, now, loc)
}

func nextClock(s string, now time.Time, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse(clockLayout, s)
	if err != nil {
		return time.Time{}, ErrBadTime
	}
	local := now.In(loc)
	t := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if t.Before(local) {
		t = t.AddDate(0, 0, 1)
	}
	return t.UTC(), nil
}
