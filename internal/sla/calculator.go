package sla

import (
	"context"
	"time"
)

// Calculator projects SLA deadlines from a start instant.
type Calculator struct {
	calendar *Calendar
}

// NewCalculator creates a calculator over the given calendar.
func NewCalculator(calendar *Calendar) *Calculator {
	return &Calculator{calendar: calendar}
}

// DueDate returns start + hours, counted in wall-clock time or in the
// entity's business hours. Deterministic for a given window configuration.
func (c *Calculator) DueDate(ctx context.Context, start time.Time, hours float64, businessHoursOnly bool, entityID int64) time.Time {
	if !businessHoursOnly {
		return wallClockAdd(start, hours)
	}
	return c.calendar.AddBusinessHours(ctx, entityID, start, hours)
}
