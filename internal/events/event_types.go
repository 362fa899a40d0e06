package events

import (
	"time"

	"github.com/spec-kit/sla-monitor/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLAWarning         EventType = "sla_warning"
	EventSLABreach          EventType = "sla_breach"
	EventSLAEscalation      EventType = "sla_escalation"
	EventSLAReset           EventType = "sla_reset"
	EventMonitoringComplete EventType = "sla_monitoring_complete"
)

// Event represents a domain event emitted by the monitor.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SLATransitionPayload payload for warning, breach and escalation events.
type SLATransitionPayload struct {
	Clock        domain.ClockType      `json:"clock"`
	RuleID       int64                 `json:"rule_id"`
	RuleName     string                `json:"rule_name"`
	TicketNumber string                `json:"ticket_number"`
	Priority     domain.TicketPriority `json:"priority"`
	Due          time.Time             `json:"due"`
	AssignedTo   *int64                `json:"assigned_to,omitempty"`
}

// SLAResetPayload payload.
type SLAResetPayload struct {
	RuleID        int64      `json:"rule_id"`
	ResponseDue   *time.Time `json:"response_due,omitempty"`
	ResolutionDue *time.Time `json:"resolution_due,omitempty"`
}

// MonitoringCompletePayload payload carrying the aggregate pass counts.
type MonitoringCompletePayload struct {
	Processed   int       `json:"processed"`
	Warnings    int       `json:"warnings"`
	Breaches    int       `json:"breaches"`
	Escalations int       `json:"escalations"`
	Failures    int       `json:"failures"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
