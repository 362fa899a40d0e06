package sla

import (
	"time"

	"github.com/spec-kit/sla-monitor/internal/domain"
)

// DefaultWarningThreshold is the fraction of allotted time after which a
// clock enters warning. Tunable via configuration; 0.80 matches the shipped
// behavior.
const DefaultWarningThreshold = 0.80

// Transition is the outcome of evaluating one clock against the current time.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionWarning
	TransitionBreach
)

func (t Transition) String() string {
	switch t {
	case TransitionWarning:
		return "warning"
	case TransitionBreach:
		return "breach"
	}
	return "none"
}

// NextState returns the clock state reached by applying the transition.
func (t Transition) NextState(current domain.ClockState) domain.ClockState {
	switch t {
	case TransitionWarning:
		return domain.ClockWarning
	case TransitionBreach:
		return domain.ClockBreached
	}
	return current
}

// EvaluateClock decides the transition for a single clock. States only move
// forward: a breached clock never transitions again, a warning clock can
// only breach, and an active clock warns at the threshold or breaches
// directly when a warning pass was missed. Warning fires at
// due - allotted*(1-threshold); breach fires strictly after due.
func EvaluateClock(state domain.ClockState, due time.Time, allottedHours, warningThreshold float64, now time.Time) Transition {
	switch state {
	case domain.ClockBreached:
		return TransitionNone
	case domain.ClockWarning:
		if now.After(due) {
			return TransitionBreach
		}
		return TransitionNone
	}

	if now.After(due) {
		return TransitionBreach
	}
	margin := time.Duration(allottedHours * (1 - warningThreshold) * float64(time.Hour))
	if !now.Before(due.Add(-margin)) {
		return TransitionWarning
	}
	return TransitionNone
}
