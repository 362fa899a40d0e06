package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/sla-monitor/internal/domain"
	"go.uber.org/zap"
)

type staticHours struct {
	windows []domain.BusinessHours
	err     error
}

func (s staticHours) ActiveHours(context.Context, int64) ([]domain.BusinessHours, error) {
	return s.windows, s.err
}

func newTestCalculator(source HoursSource) *Calculator {
	return NewCalculator(NewCalendar(source, zap.NewNop()))
}

func TestDueDateWallClock(t *testing.T) {
	calc := newTestCalculator(staticHours{})
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	for _, hours := range []float64{0, 0.5, 4, 24, 72.25} {
		due := calc.DueDate(context.Background(), start, hours, false, 5)
		assert.Equal(t, start.Add(time.Duration(hours*float64(time.Hour))), due)
	}
}

func TestDueDateBusinessHours(t *testing.T) {
	calc := newTestCalculator(staticHours{windows: businessWeek()})
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC) // Friday

	due := calc.DueDate(context.Background(), start, 2, true, 5)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), due)
}

func TestDueDateFallsBackWhenHoursLoadFails(t *testing.T) {
	calc := newTestCalculator(staticHours{err: assert.AnError})
	start := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	due := calc.DueDate(context.Background(), start, 2, true, 5)
	assert.Equal(t, start.Add(2*time.Hour), due)
}
