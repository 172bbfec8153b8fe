package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned when a wall-clock time is not "HH:MM".
var ErrInvalidTime = errors.New("schedule: invalid time of day")

// Period is the re-arm interval of every alarm.
const Period = 24 * time.Hour

// Entry is a daily trigger at Hour:Minute local time, identified by ID.
// Entries are immutable once created.
type Entry struct {
	Hour   int
	Minute int
	ID     string
}

// ParseEntry builds an Entry from an "HH:MM" string. Single-digit hours and
// minutes ("7:5") are accepted.
func ParseEntry(clock, id string) (Entry, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 || len(hh) > 2 {
		return Entry{}, fmt.Errorf("%w: hour in %q", ErrInvalidTime, clock)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 || len(mm) > 2 {
		return Entry{}, fmt.Errorf("%w: minute in %q", ErrInvalidTime, clock)
	}
	return Entry{Hour: hour, Minute: minute, ID: id}, nil
}

// NextFire returns the first occurrence of the entry strictly after the
// time-of-day of now: today if Hour:Minute is still ahead, tomorrow
// otherwise. An entry due exactly now fires tomorrow.
func (e Entry) NextFire(now time.Time) time.Time {
	y, m, d := now.Date()
	at := time.Date(y, m, d, e.Hour, e.Minute, 0, 0, now.Location())
	if now.Before(at) {
		return at
	}
	return time.Date(y, m, d+1, e.Hour, e.Minute, 0, 0, now.Location())
}

func (e Entry) String() string {
	return fmt.Sprintf("%02d:%02d %s", e.Hour, e.Minute, e.ID)
}
