package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-monitor/internal/domain"
	"github.com/spec-kit/sla-monitor/internal/events"
)

// eventEscalation is the default EscalationHook. It raises an escalation
// event for listeners to act on and reports the trigger so the pass counts
// it. Only rules that define an escalation target ever reach this point.
type eventEscalation struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewEventEscalation returns a hook that escalates by publishing an event.
func NewEventEscalation(dispatcher events.Dispatcher, logger *zap.Logger) EscalationHook {
	return &eventEscalation{
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func (e *eventEscalation) Escalate(ctx context.Context, ticket *domain.Ticket, clock domain.ClockType, rule *domain.SlaRule) bool {
	if e.dispatcher == nil {
		return false
	}

	var due time.Time
	switch clock {
	case domain.ClockResponse:
		if ticket.SLA.ResponseDue != nil {
			due = *ticket.SLA.ResponseDue
		}
	case domain.ClockResolution:
		if ticket.SLA.ResolutionDue != nil {
			due = *ticket.SLA.ResolutionDue
		}
	}

	e.logger.Info("sla escalation triggered",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.Number),
		zap.String("clock", string(clock)),
		zap.Int64("rule_id", rule.ID))

	err := e.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLAEscalation,
		TicketID:  ticket.ID,
		Timestamp: e.now(),
		Payload: events.SLATransitionPayload{
			Clock:        clock,
			RuleID:       rule.ID,
			RuleName:     rule.Name,
			TicketNumber: ticket.Number,
			Priority:     ticket.Priority,
			Due:          due,
			AssignedTo:   ticket.AssignedTo,
		},
	})
	if err != nil {
		e.logger.Warn("escalation publish failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return false
	}
	return true
}
