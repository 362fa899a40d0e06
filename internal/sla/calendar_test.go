package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-monitor/internal/domain"
)

// businessWeek returns Mon-Fri 09:00-17:00 windows.
func businessWeek() []domain.BusinessHours {
	windows := make([]domain.BusinessHours, 0, 5)
	for day := time.Monday; day <= time.Friday; day++ {
		windows = append(windows, domain.BusinessHours{
			Weekday:      day,
			StartMinutes: 9 * 60,
			EndMinutes:   17 * 60,
			IsActive:     true,
		})
	}
	return windows
}

func TestAddWindowHoursSkipsWeekend(t *testing.T) {
	// Friday 2024-03-01 16:00 + 2 business hours: one hour left on Friday,
	// weekend closed, remainder lands Monday 10:00.
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	due, err := AddWindowHours(businessWeek(), start, 2)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), due)
}

func TestAddWindowHoursStartOutsideWindow(t *testing.T) {
	// Saturday has no window, so the clock starts running Monday 09:00.
	start := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	due, err := AddWindowHours(businessWeek(), start, 1.5)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC), due)
}

func TestAddWindowHoursSpansMultipleDays(t *testing.T) {
	// Monday 09:00 + 20 business hours = 2.5 working days.
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	due, err := AddWindowHours(businessWeek(), start, 20)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 6, 13, 0, 0, 0, time.UTC), due)
}

func TestAddWindowHoursNoWindowsIsWallClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	due, err := AddWindowHours(nil, start, 2)
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Hour), due)
}

func TestAddWindowHoursInactiveWindowsIgnored(t *testing.T) {
	windows := businessWeek()
	for i := range windows {
		windows[i].IsActive = false
	}
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	due, err := AddWindowHours(windows, start, 2)
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Hour), due)
}

func TestAddWindowHoursZeroHours(t *testing.T) {
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	due, err := AddWindowHours(businessWeek(), start, 0)
	require.NoError(t, err)
	assert.Equal(t, start, due)
}

func TestAddWindowHoursIterationCapFallsBackToWallClock(t *testing.T) {
	// One 8h window per week cannot satisfy 10000 hours within the cap.
	windows := []domain.BusinessHours{{
		Weekday:      time.Monday,
		StartMinutes: 9 * 60,
		EndMinutes:   17 * 60,
		IsActive:     true,
	}}
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	due, err := AddWindowHours(windows, start, 10000)
	require.ErrorIs(t, err, ErrIterationCapExceeded)
	assert.Equal(t, start.Add(10000*time.Hour), due)
}

func TestElapsedWindowHoursAcrossDays(t *testing.T) {
	// Monday 16:00 to Tuesday 10:00: one hour Monday, one hour Tuesday.
	start := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	assert.InDelta(t, 2.0, ElapsedWindowHours(businessWeek(), start, end), 1e-9)
}

func TestElapsedWindowHoursWeekendContributesNothing(t *testing.T) {
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC) // Friday
	end := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)   // Monday

	assert.InDelta(t, 2.0, ElapsedWindowHours(businessWeek(), start, end), 1e-9)
}

func TestElapsedWindowHoursNoWindowsIsWallClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	end := start.Add(36 * time.Hour)

	assert.InDelta(t, 36.0, ElapsedWindowHours(nil, start, end), 1e-9)
}

func TestElapsedWindowHoursInvertedRange(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.Zero(t, ElapsedWindowHours(businessWeek(), start, start.Add(-time.Hour)))
}
