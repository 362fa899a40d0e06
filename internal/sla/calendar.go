// Package sla contains the pure SLA computation core: business-hours
// arithmetic, rule resolution, due-date projection and the per-clock state
// machine. Nothing in this package touches storage or emits side effects.
package sla

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-monitor/internal/domain"
)

// maxCalendarDays bounds day-step iteration. Two years of open windows is
// far beyond any configurable SLA target; past it the computation fails
// closed to wall clock.
const maxCalendarDays = 731

// ErrIterationCapExceeded reports that business-hours iteration hit the
// day-step bound before exhausting the target hours.
var ErrIterationCapExceeded = errors.New("business hours iteration cap exceeded")

// HoursSource loads the active windows configured for an entity. Timestamps
// handed to the calendar are interpreted in their own location; windows have
// no timezone of their own.
type HoursSource interface {
	ActiveHours(ctx context.Context, entityID int64) ([]domain.BusinessHours, error)
}

// Calendar computes elapsed and projected business time per entity.
// Load or computation failures degrade to wall-clock arithmetic and are
// logged as warnings, never surfaced as fatal.
type Calendar struct {
	source HoursSource
	logger *zap.Logger
}

// NewCalendar creates a calendar over the given windows source.
func NewCalendar(source HoursSource, logger *zap.Logger) *Calendar {
	return &Calendar{source: source, logger: logger}
}

// ElapsedBusinessHours returns the business hours between start and end for
// the entity. With no active windows configured it degenerates to wall-clock
// hours.
func (c *Calendar) ElapsedBusinessHours(ctx context.Context, entityID int64, start, end time.Time) float64 {
	windows, err := c.source.ActiveHours(ctx, entityID)
	if err != nil {
		c.logger.Warn("business hours load failed, using wall clock",
			zap.Int64("entity_id", entityID), zap.Error(err))
		return end.Sub(start).Hours()
	}
	return ElapsedWindowHours(windows, start, end)
}

// AddBusinessHours projects a deadline the given number of business hours
// after start. With no active windows it degenerates to start + hours.
func (c *Calendar) AddBusinessHours(ctx context.Context, entityID int64, start time.Time, hours float64) time.Time {
	windows, err := c.source.ActiveHours(ctx, entityID)
	if err != nil {
		c.logger.Warn("business hours load failed, using wall clock",
			zap.Int64("entity_id", entityID), zap.Error(err))
		return wallClockAdd(start, hours)
	}

	due, err := AddWindowHours(windows, start, hours)
	if err != nil {
		c.logger.Warn("business hours projection fell back to wall clock",
			zap.Int64("entity_id", entityID),
			zap.Float64("hours", hours),
			zap.Error(err))
		return wallClockAdd(start, hours)
	}
	return due
}

// ElapsedWindowHours is the pure form of ElapsedBusinessHours: it sums the
// overlap of [start, end] with each day's open window. Days whose weekday
// has no active window contribute nothing. An empty window set means 24/7.
func ElapsedWindowHours(windows []domain.BusinessHours, start, end time.Time) float64 {
	if !start.Before(end) {
		return 0
	}
	spans := weekdaySpans(windows)
	if len(spans) == 0 {
		return end.Sub(start).Hours()
	}

	var total time.Duration
	day := start
	for steps := 0; steps < maxCalendarDays && !day.After(end); steps++ {
		if w, ok := spans[day.Weekday()]; ok {
			from := maxTime(start, w.Start(day))
			to := minTime(end, w.End(day))
			if from.Before(to) {
				total += to.Sub(from)
			}
		}
		day = nextMidnight(day)
	}
	return total.Hours()
}

// AddWindowHours is the pure form of AddBusinessHours. It walks day by day,
// consuming open-window time until the target hours are exhausted. An empty
// window set means wall clock. Exceeding the day-step bound returns
// ErrIterationCapExceeded together with the wall-clock fallback.
func AddWindowHours(windows []domain.BusinessHours, start time.Time, hours float64) (time.Time, error) {
	if hours <= 0 {
		return start, nil
	}
	spans := weekdaySpans(windows)
	if len(spans) == 0 {
		return wallClockAdd(start, hours), nil
	}

	remaining := time.Duration(hours * float64(time.Hour))
	cursor := start
	for steps := 0; steps < maxCalendarDays; steps++ {
		if w, ok := spans[cursor.Weekday()]; ok {
			open := w.Start(cursor)
			closing := w.End(cursor)
			from := maxTime(cursor, open)
			if from.Before(closing) {
				available := closing.Sub(from)
				if remaining <= available {
					return from.Add(remaining), nil
				}
				remaining -= available
			}
		}
		cursor = nextMidnight(cursor)
	}
	return wallClockAdd(start, hours), ErrIterationCapExceeded
}

// weekdaySpans keeps the first valid active window per weekday.
func weekdaySpans(windows []domain.BusinessHours) map[time.Weekday]domain.BusinessHours {
	spans := make(map[time.Weekday]domain.BusinessHours, 7)
	for _, w := range windows {
		if !w.IsActive || w.Validate() != nil {
			continue
		}
		if _, exists := spans[w.Weekday]; !exists {
			spans[w.Weekday] = w
		}
	}
	return spans
}

func wallClockAdd(start time.Time, hours float64) time.Time {
	return start.Add(time.Duration(hours * float64(time.Hour)))
}

func nextMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
