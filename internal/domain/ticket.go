package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// Terminal reports whether monitoring stops for this status.
func (s TicketStatus) Terminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Rank orders priorities for sweep ordering (urgent first).
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityUrgent:
		return 4
	case TicketPriorityHigh:
		return 3
	case TicketPriorityNormal:
		return 2
	case TicketPriorityLow:
		return 1
	}
	return 0
}

// ClockType identifies one of the two independent SLA clocks.
type ClockType string

const (
	ClockResponse   ClockType = "response"
	ClockResolution ClockType = "resolution"
)

// ClockState tracks a single SLA clock. States only move forward
// (active -> warning -> breached) until an explicit reset.
type ClockState string

const (
	ClockActive   ClockState = "active"
	ClockWarning  ClockState = "warning"
	ClockBreached ClockState = "breached"
)

func (s ClockState) rank() int {
	switch s {
	case ClockBreached:
		return 2
	case ClockWarning:
		return 1
	}
	return 0
}

// SLAStatus is the legacy combined view of both clocks.
type SLAStatus string

const (
	SLAStatusActive             SLAStatus = "active"
	SLAStatusResponseWarning    SLAStatus = "response_warning"
	SLAStatusResponseBreached   SLAStatus = "response_breached"
	SLAStatusResolutionWarning  SLAStatus = "resolution_warning"
	SLAStatusResolutionBreached SLAStatus = "resolution_breached"
)

// TicketSLA carries the SLA fields owned exclusively by the monitor.
type TicketSLA struct {
	RuleID          *int64     `json:"rule_id,omitempty"`
	ResponseDue     *time.Time `json:"response_due,omitempty"`
	ResolutionDue   *time.Time `json:"resolution_due,omitempty"`
	ResponseState   ClockState `json:"response_state"`
	ResolutionState ClockState `json:"resolution_state"`
}

// Ticket is the SLA-relevant subset of a support ticket. The full aggregate
// lives in the surrounding ticket system; the monitor only reads this
// projection and writes the SLA fields.
type Ticket struct {
	ID              int64          `json:"id"`
	Number          string         `json:"number"`
	EntityID        int64          `json:"entity_id"`
	Priority        TicketPriority `json:"priority"`
	Status          TicketStatus   `json:"status"`
	AssignedTo      *int64         `json:"assigned_to,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	FirstResponseAt *time.Time     `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	SLA             TicketSLA      `json:"sla"`
}

// SLAStatus derives the single legacy status field from the two clock
// states. Breach outranks warning; on equal rank the response clock wins.
func (t *Ticket) SLAStatus() SLAStatus {
	resp := t.SLA.ResponseState
	resl := t.SLA.ResolutionState

	if resp.rank() >= resl.rank() {
		switch resp {
		case ClockBreached:
			return SLAStatusResponseBreached
		case ClockWarning:
			return SLAStatusResponseWarning
		}
		return SLAStatusActive
	}
	switch resl {
	case ClockBreached:
		return SLAStatusResolutionBreached
	case ClockWarning:
		return SLAStatusResolutionWarning
	}
	return SLAStatusActive
}

// ClockState returns the tracked state for the given clock.
func (t *Ticket) ClockState(clock ClockType) ClockState {
	if clock == ClockResolution {
		return t.SLA.ResolutionState
	}
	return t.SLA.ResponseState
}

// Responded reports whether the response clock's qualifying action happened.
func (t *Ticket) Responded() bool {
	return t.FirstResponseAt != nil
}

// Resolved reports whether the resolution clock's qualifying action happened.
func (t *Ticket) Resolved() bool {
	return t.ResolvedAt != nil
}
