package domain

import (
	"errors"
	"time"
)

// SlaRule defines response/resolution targets for matching tickets.
// A nil EntityID applies the rule to all entities; a nil Priority applies it
// to all priorities.
type SlaRule struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	EntityID            *int64          `json:"entity_id,omitempty"`
	Priority            *TicketPriority `json:"priority,omitempty"`
	ResponseTimeHours   *float64        `json:"response_time_hours,omitempty"`
	ResolutionTimeHours *float64        `json:"resolution_time_hours,omitempty"`
	EscalationTimeHours *float64        `json:"escalation_time_hours,omitempty"`
	BusinessHoursOnly   bool            `json:"business_hours_only"`
	IsActive            bool            `json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Validate checks structural constraints on a loaded rule.
func (r *SlaRule) Validate() error {
	if r.Name == "" {
		return errors.New("sla rule name is required")
	}
	if r.ResponseTimeHours == nil && r.ResolutionTimeHours == nil {
		return errors.New("sla rule must target at least one clock")
	}
	for _, hours := range []*float64{r.ResponseTimeHours, r.ResolutionTimeHours, r.EscalationTimeHours} {
		if hours != nil && *hours < 0 {
			return errors.New("sla rule hours must be non-negative")
		}
	}
	return nil
}

// AppliesTo reports whether the rule is a candidate for the ticket.
func (r *SlaRule) AppliesTo(t *Ticket) bool {
	if r.EntityID != nil && *r.EntityID != t.EntityID {
		return false
	}
	if r.Priority != nil && *r.Priority != t.Priority {
		return false
	}
	return true
}

// Escalates reports whether a breach of this rule triggers escalation.
func (r *SlaRule) Escalates() bool {
	return r.EscalationTimeHours != nil && *r.EscalationTimeHours > 0
}
