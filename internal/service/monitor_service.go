package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-monitor/internal/domain"
	"github.com/spec-kit/sla-monitor/internal/events"
	"github.com/spec-kit/sla-monitor/internal/observability"
	"github.com/spec-kit/sla-monitor/internal/repository"
	"github.com/spec-kit/sla-monitor/internal/sla"
	apperrors "github.com/spec-kit/sla-monitor/pkg/util"
)

// RuleSource supplies the active rule set, typically the redis-backed cache
// in front of the rule store.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]domain.SlaRule, error)
}

// EscalationHook is the external escalation workflow. The monitor only
// records whether it was triggered.
type EscalationHook interface {
	Escalate(ctx context.Context, ticket *domain.Ticket, clock domain.ClockType, rule *domain.SlaRule) bool
}

// PassResult aggregates the counts of one monitoring pass.
type PassResult struct {
	Processed   int       `json:"processed"`
	Warnings    int       `json:"warnings"`
	Breaches    int       `json:"breaches"`
	Escalations int       `json:"escalations"`
	Failures    int       `json:"failures"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// TicketCheckResult reports what a single-ticket evaluation did.
type TicketCheckResult struct {
	Warnings    int `json:"warnings"`
	Breaches    int `json:"breaches"`
	Escalations int `json:"escalations"`
}

func (r TicketCheckResult) changed() bool {
	return r.Warnings > 0 || r.Breaches > 0
}

// MonitorService runs the SLA compliance sweep: rule resolution, lazy
// due-date materialization, clock evaluation and exactly-once transition
// side effects. It is the sole writer of ticket sla_* fields.
type MonitorService struct {
	tickets          repository.TicketStore
	rules            RuleSource
	calculator       *sla.Calculator
	runs             repository.RunStore
	dispatcher       events.Dispatcher
	escalation       EscalationHook
	metrics          *observability.Metrics
	logger           *zap.Logger
	warningThreshold float64
	now              func() time.Time
}

// MonitorDependencies bundles collaborators for the monitor service.
type MonitorDependencies struct {
	TicketStore      repository.TicketStore
	Rules            RuleSource
	Calculator       *sla.Calculator
	RunStore         repository.RunStore
	Dispatcher       events.Dispatcher
	Escalation       EscalationHook
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	WarningThreshold float64
	Now              func() time.Time
}

// NewMonitorService constructs the service.
func NewMonitorService(deps MonitorDependencies) *MonitorService {
	threshold := deps.WarningThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = sla.DefaultWarningThreshold
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &MonitorService{
		tickets:          deps.TicketStore,
		rules:            deps.Rules,
		calculator:       deps.Calculator,
		runs:             deps.RunStore,
		dispatcher:       deps.Dispatcher,
		escalation:       deps.Escalation,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		warningThreshold: threshold,
		now:              now,
	}
}

// RunPass executes one full monitoring sweep. A failure on a single ticket
// is logged and counted without aborting the batch; a store failure before
// the sweep starts aborts the whole pass.
func (s *MonitorService) RunPass(ctx context.Context) (PassResult, error) {
	result := PassResult{StartedAt: s.now()}

	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return result, apperrors.NewSystemicError("load sla rules", err)
	}
	tickets, err := s.tickets.FindMonitorable(ctx)
	if err != nil {
		return result, apperrors.NewSystemicError("fetch monitorable tickets", err)
	}

	for i := range tickets {
		ticket := &tickets[i]
		check, err := s.evaluateTicket(ctx, ticket, rules)
		result.Processed++
		if err != nil {
			result.Failures++
			s.logger.Warn("sla check failed",
				zap.Int64("ticket_id", ticket.ID),
				zap.String("ticket_number", ticket.Number),
				zap.Error(err))
			continue
		}
		result.Warnings += check.Warnings
		result.Breaches += check.Breaches
		result.Escalations += check.Escalations
	}
	result.FinishedAt = s.now()

	s.recordPass(ctx, result)
	s.publish(ctx, events.Event{
		Type: events.EventMonitoringComplete,
		Payload: events.MonitoringCompletePayload{
			Processed:   result.Processed,
			Warnings:    result.Warnings,
			Breaches:    result.Breaches,
			Escalations: result.Escalations,
			Failures:    result.Failures,
			StartedAt:   result.StartedAt,
			FinishedAt:  result.FinishedAt,
		},
	})

	s.logger.Info("sla monitoring pass complete",
		zap.Int("processed", result.Processed),
		zap.Int("warnings", result.Warnings),
		zap.Int("breaches", result.Breaches),
		zap.Int("escalations", result.Escalations),
		zap.Int("failures", result.Failures),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)))

	return result, nil
}

// CheckTicket runs the same evaluation for one ticket, synchronously.
func (s *MonitorService) CheckTicket(ctx context.Context, ticketID int64) (TicketCheckResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return TicketCheckResult{}, err
	}
	if ticket.Status.Terminal() {
		return TicketCheckResult{}, nil
	}
	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return TicketCheckResult{}, err
	}
	return s.evaluateTicket(ctx, ticket, rules)
}

// ResetTicketSLA recomputes due dates from now and returns both clocks to
// active. Called on reassignment or manual admin action.
func (s *MonitorService) ResetTicketSLA(ctx context.Context, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return err
	}
	rule := sla.Resolve(ticket, rules)
	if rule == nil {
		return apperrors.ErrNoApplicableRule
	}

	start := s.now()
	update := repository.SLAFieldsUpdate{
		TicketID:            ticket.ID,
		RuleID:              &rule.ID,
		ResponseState:       domain.ClockActive,
		ResolutionState:     domain.ClockActive,
		PrevResponseState:   ticket.SLA.ResponseState,
		PrevResolutionState: ticket.SLA.ResolutionState,
	}
	if rule.ResponseTimeHours != nil {
		due := s.calculator.DueDate(ctx, start, *rule.ResponseTimeHours, rule.BusinessHoursOnly, ticket.EntityID)
		update.ResponseDue = &due
	}
	if rule.ResolutionTimeHours != nil {
		due := s.calculator.DueDate(ctx, start, *rule.ResolutionTimeHours, rule.BusinessHoursOnly, ticket.EntityID)
		update.ResolutionDue = &due
	}
	if err := s.tickets.UpdateSLAFields(ctx, update); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventSLAReset,
		TicketID: ticket.ID,
		Payload: events.SLAResetPayload{
			RuleID:        rule.ID,
			ResponseDue:   update.ResponseDue,
			ResolutionDue: update.ResolutionDue,
		},
	})
	s.logger.Info("sla reset",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.Number),
		zap.Int64("rule_id", rule.ID))
	return nil
}

// evaluateTicket resolves the ticket's rule, materializes missing due dates
// and advances both clocks. Side effects fire only after the state change
// is durable, so a re-run with no time passing emits nothing new.
func (s *MonitorService) evaluateTicket(ctx context.Context, ticket *domain.Ticket, rules []domain.SlaRule) (TicketCheckResult, error) {
	var result TicketCheckResult

	rule := sla.Resolve(ticket, rules)
	if rule == nil {
		return result, nil
	}

	if err := s.materializeDueDates(ctx, ticket, rule); err != nil {
		return result, err
	}

	now := s.now()
	prevResponse := ticket.SLA.ResponseState
	prevResolution := ticket.SLA.ResolutionState
	var transitions []clockTransition

	// A clock whose qualifying action already happened stops advancing.
	if ticket.SLA.ResponseDue != nil && rule.ResponseTimeHours != nil && !ticket.Responded() {
		tr := sla.EvaluateClock(ticket.SLA.ResponseState, *ticket.SLA.ResponseDue,
			*rule.ResponseTimeHours, s.warningThreshold, now)
		if tr != sla.TransitionNone {
			ticket.SLA.ResponseState = tr.NextState(ticket.SLA.ResponseState)
			transitions = append(transitions, clockTransition{domain.ClockResponse, tr, *ticket.SLA.ResponseDue})
		}
	}
	if ticket.SLA.ResolutionDue != nil && rule.ResolutionTimeHours != nil && !ticket.Resolved() {
		tr := sla.EvaluateClock(ticket.SLA.ResolutionState, *ticket.SLA.ResolutionDue,
			*rule.ResolutionTimeHours, s.warningThreshold, now)
		if tr != sla.TransitionNone {
			ticket.SLA.ResolutionState = tr.NextState(ticket.SLA.ResolutionState)
			transitions = append(transitions, clockTransition{domain.ClockResolution, tr, *ticket.SLA.ResolutionDue})
		}
	}
	if len(transitions) == 0 {
		return result, nil
	}

	err := s.tickets.UpdateSLAFields(ctx, repository.SLAFieldsUpdate{
		TicketID:            ticket.ID,
		RuleID:              ticket.SLA.RuleID,
		ResponseDue:         ticket.SLA.ResponseDue,
		ResolutionDue:       ticket.SLA.ResolutionDue,
		ResponseState:       ticket.SLA.ResponseState,
		ResolutionState:     ticket.SLA.ResolutionState,
		PrevResponseState:   prevResponse,
		PrevResolutionState: prevResolution,
	})
	if err != nil {
		return TicketCheckResult{}, err
	}

	for _, t := range transitions {
		s.emitTransition(ctx, ticket, rule, t, &result)
	}
	return result, nil
}

type clockTransition struct {
	clock      domain.ClockType
	transition sla.Transition
	due        time.Time
}

func (s *MonitorService) emitTransition(ctx context.Context, ticket *domain.Ticket, rule *domain.SlaRule, t clockTransition, result *TicketCheckResult) {
	payload := events.SLATransitionPayload{
		Clock:        t.clock,
		RuleID:       rule.ID,
		RuleName:     rule.Name,
		TicketNumber: ticket.Number,
		Priority:     ticket.Priority,
		Due:          t.due,
		AssignedTo:   ticket.AssignedTo,
	}

	switch t.transition {
	case sla.TransitionWarning:
		result.Warnings++
		s.publish(ctx, events.Event{Type: events.EventSLAWarning, TicketID: ticket.ID, Payload: payload})
	case sla.TransitionBreach:
		result.Breaches++
		s.logger.Warn("sla breach",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.Number),
			zap.String("clock", string(t.clock)),
			zap.Time("due", t.due))
		s.publish(ctx, events.Event{Type: events.EventSLABreach, TicketID: ticket.ID, Payload: payload})

		if rule.Escalates() && s.escalation != nil {
			if s.escalation.Escalate(ctx, ticket, t.clock, rule) {
				result.Escalations++
			}
		}
	}
}

// materializeDueDates computes and persists due dates on the first pass
// that sees a ticket without them. Existing dates and advanced clock states
// are never overwritten here.
func (s *MonitorService) materializeDueDates(ctx context.Context, ticket *domain.Ticket, rule *domain.SlaRule) error {
	needsResponse := rule.ResponseTimeHours != nil && ticket.SLA.ResponseDue == nil
	needsResolution := rule.ResolutionTimeHours != nil && ticket.SLA.ResolutionDue == nil
	if !needsResponse && !needsResolution {
		return nil
	}

	if needsResponse {
		due := s.calculator.DueDate(ctx, ticket.CreatedAt, *rule.ResponseTimeHours, rule.BusinessHoursOnly, ticket.EntityID)
		ticket.SLA.ResponseDue = &due
	}
	if needsResolution {
		due := s.calculator.DueDate(ctx, ticket.CreatedAt, *rule.ResolutionTimeHours, rule.BusinessHoursOnly, ticket.EntityID)
		ticket.SLA.ResolutionDue = &due
	}
	if ticket.SLA.ResponseState == "" {
		ticket.SLA.ResponseState = domain.ClockActive
	}
	if ticket.SLA.ResolutionState == "" {
		ticket.SLA.ResolutionState = domain.ClockActive
	}
	ticket.SLA.RuleID = &rule.ID

	return s.tickets.UpdateSLAFields(ctx, repository.SLAFieldsUpdate{
		TicketID:            ticket.ID,
		RuleID:              ticket.SLA.RuleID,
		ResponseDue:         ticket.SLA.ResponseDue,
		ResolutionDue:       ticket.SLA.ResolutionDue,
		ResponseState:       ticket.SLA.ResponseState,
		ResolutionState:     ticket.SLA.ResolutionState,
		PrevResponseState:   ticket.SLA.ResponseState,
		PrevResolutionState: ticket.SLA.ResolutionState,
	})
}

// Metrics returns the durable counters together with in-process ones.
func (s *MonitorService) Metrics(ctx context.Context) (*domain.MonitoringRun, observability.MetricsSnapshot, error) {
	run, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, s.metrics.Snapshot(), err
	}
	return run, s.metrics.Snapshot(), nil
}

func (s *MonitorService) recordPass(ctx context.Context, result PassResult) {
	s.metrics.RecordPass(result.Processed, result.Warnings, result.Breaches,
		result.Escalations, result.Failures, result.FinishedAt)

	err := s.runs.Accumulate(ctx, domain.MonitoringRun{
		Processed:   int64(result.Processed),
		Warnings:    int64(result.Warnings),
		Breaches:    int64(result.Breaches),
		Escalations: int64(result.Escalations),
		Failures:    int64(result.Failures),
		LastCheck:   result.FinishedAt,
	})
	if err != nil {
		s.logger.Warn("failed to persist monitoring run counters", zap.Error(err))
	}
}

func (s *MonitorService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
