package arming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParseClock verifies accepted and rejected HH:MM inputs.
func TestParseClock(t *testing.T) {
	t.Parallel()

	valid := map[string]Clock{
		"00:00": 0,
		"9:05":  9*60 + 5,
		"09:00": 9 * 60,
		"23:59": 23*60 + 59,
	}
	for s, want := range valid {
		got, err := ParseClock(s)
		require.NoError(t, err, s)
		require.Equal(t, want, got, s)
	}

	for _, s := range []string{"", "24:00", "12:60", "12:5", "ab:cd", "123:00", "12-00"} {
		_, err := ParseClock(s)
		require.ErrorIs(t, err, ErrInvalidClock, s)
	}
}

// TestParseWindow rejects inverted, empty and malformed windows.
func TestParseWindow(t *testing.T) {
	t.Parallel()

	w, err := ParseWindow("08:00", "18:00")
	require.NoError(t, err)
	require.Equal(t, "08:00-18:00", w.String())

	_, err = ParseWindow("18:00", "08:00")
	require.ErrorIs(t, err, ErrInvalidWindow)

	_, err = ParseWindow("08:00", "08:00")
	require.ErrorIs(t, err, ErrInvalidWindow)

	_, err = ParseWindow("08:00", "")
	require.ErrorIs(t, err, ErrInvalidClock)
}

// TestWindowContains checks the half-open boundaries.
func TestWindowContains(t *testing.T) {
	t.Parallel()

	w, err := ParseWindow("09:00", "17:00")
	require.NoError(t, err)

	at := func(h, m, s int) Clock {
		return ClockOf(time.Date(2026, 3, 2, h, m, s, 0, time.Local))
	}

	require.False(t, w.Contains(at(8, 59, 59)))
	require.True(t, w.Contains(at(9, 0, 0)))
	require.True(t, w.Contains(at(16, 59, 59)))
	require.False(t, w.Contains(at(17, 0, 0)))
	require.Equal(t, at(12, 30, 1), at(12, 30, 58))
}
