package domain

import (
	"errors"
	"time"
)

// BusinessHours is one open window for one weekday. A nil EntityID marks a
// global default row used when an entity has no windows of its own. An
// entity with no active windows at all is treated as 24/7 (wall clock).
type BusinessHours struct {
	ID           int64        `json:"id"`
	EntityID     *int64       `json:"entity_id,omitempty"`
	Weekday      time.Weekday `json:"weekday"`
	StartMinutes int          `json:"start_minutes"`
	EndMinutes   int          `json:"end_minutes"`
	IsActive     bool         `json:"is_active"`
}

// Validate checks structural constraints on a loaded window.
func (b BusinessHours) Validate() error {
	if b.Weekday < time.Sunday || b.Weekday > time.Saturday {
		return errors.New("business hours weekday out of range")
	}
	if b.StartMinutes < 0 || b.EndMinutes > 24*60 {
		return errors.New("business hours window out of range")
	}
	if b.StartMinutes >= b.EndMinutes {
		return errors.New("business hours window must start before it ends")
	}
	return nil
}

// Start returns the window opening time on the given day.
func (b BusinessHours) Start(day time.Time) time.Time {
	year, month, d := day.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, day.Location()).
		Add(time.Duration(b.StartMinutes) * time.Minute)
}

// End returns the window closing time on the given day.
func (b BusinessHours) End(day time.Time) time.Time {
	year, month, d := day.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, day.Location()).
		Add(time.Duration(b.EndMinutes) * time.Minute)
}
