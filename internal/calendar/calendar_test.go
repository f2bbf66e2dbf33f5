package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsOpen_WeekdayDuringSession(t *testing.T) {
	// Tuesday, June 2, 2026, 10:00 ET.
	t1 := time.Date(2026, time.June, 2, 10, 0, 0, 0, newYork)
	assert.True(t, IsOpen(t1))
}

func TestIsOpen_BeforeOpen(t *testing.T) {
	t1 := time.Date(2026, time.June, 2, 9, 0, 0, 0, newYork)
	assert.False(t, IsOpen(t1))
}

func TestIsOpen_AfterClose(t *testing.T) {
	t1 := time.Date(2026, time.June, 2, 16, 1, 0, 0, newYork)
	assert.False(t, IsOpen(t1))
}

func TestIsOpen_BoundariesInclusive(t *testing.T) {
	open := time.Date(2026, time.June, 2, 9, 30, 0, 0, newYork)
	close := time.Date(2026, time.June, 2, 16, 0, 0, 0, newYork)
	assert.True(t, IsOpen(open))
	assert.True(t, IsOpen(close))
}

func TestIsOpen_Weekend(t *testing.T) {
	saturday := time.Date(2026, time.June, 6, 10, 0, 0, 0, newYork)
	sunday := time.Date(2026, time.June, 7, 10, 0, 0, 0, newYork)
	assert.False(t, IsOpen(saturday))
	assert.False(t, IsOpen(sunday))
}

func TestIsOpen_Holiday(t *testing.T) {
	independenceDayObserved := time.Date(2026, time.July, 3, 10, 0, 0, 0, newYork)
	assert.False(t, IsOpen(independenceDayObserved))
}

func TestIsOpen_ConvertsOtherTimezones(t *testing.T) {
	// 14:00 UTC on a weekday is 10:00 ET (EDT, UTC-4) in June.
	t1 := time.Date(2026, time.June, 2, 14, 0, 0, 0, time.UTC)
	assert.True(t, IsOpen(t1))
}
