package arming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Building groups points that share one schedule window.
type Building struct {
	// ID is the stable primary key from the inventory.
	ID int64
	// Name is the human-readable building name, also used in notifications.
	Name string
}

// Clock is a wall-clock time of day in minutes after midnight.
type Clock int

// MinutesPerDay bounds every valid Clock value.
const MinutesPerDay = 24 * 60

var (
	// ErrInvalidClock is returned when a time of day is not HH:MM within 00:00-23:59.
	ErrInvalidClock = errors.New("time of day must be HH:MM between 00:00 and 23:59")
	// ErrInvalidWindow is returned when a window does not start before it ends.
	ErrInvalidWindow = errors.New("schedule window start must be before end")
	// ErrNoSchedule is returned when a building has no schedule window at all.
	ErrNoSchedule = errors.New("schedule not found")
)

// ParseClock parses "HH:MM" (hour may be a single digit) in 24h format.
func ParseClock(s string) (Clock, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hours) == 0 || len(hours) > 2 || len(minutes) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	return Clock(h*60 + m), nil
}

// ClockOf returns the minute of the day of t in t's location.
// Seconds are dropped so every instant within one minute maps to the same Clock.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// String formats the clock as zero-padded HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a daily half-open interval [Start, End) of local wall-clock time.
// Windows never wrap past midnight.
type Window struct {
	Start Clock
	End   Clock
}

// ParseWindow builds a Window from stored HH:MM strings.
// A missing bound or a window that does not start before it ends is an error.
func ParseWindow(start, end string) (Window, error) {
	startClock, err := ParseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}

	endClock, err := ParseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}

	w := Window{
		Start: startClock,
		End:   endClock,
	}

	if err = w.Validate(); err != nil {
		return Window{}, err
	}

	return w, nil
}

// Validate checks that Start is strictly before End.
func (w Window) Validate() error {
	if w.Start < 0 || w.End > MinutesPerDay || w.Start >= w.End {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.Start, w.End)
	}

	return nil
}

// Contains reports whether c lies within [Start, End).
func (w Window) Contains(c Clock) bool {
	return w.Start <= c && c < w.End
}

// String renders the window as HH:MM-HH:MM.
func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}
