package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-monitor/internal/domain"
	"github.com/spec-kit/sla-monitor/internal/events"
	"github.com/spec-kit/sla-monitor/internal/observability"
	"github.com/spec-kit/sla-monitor/internal/repository"
	"github.com/spec-kit/sla-monitor/internal/sla"
	apperrors "github.com/spec-kit/sla-monitor/pkg/util"
)

func ptr[T any](v T) *T { return &v }

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[int64]*domain.Ticket
	updates []repository.SLAFieldsUpdate
	failFor map[int64]error
}

func newFakeTicketStore(tickets ...*domain.Ticket) *fakeTicketStore {
	s := &fakeTicketStore{
		tickets: make(map[int64]*domain.Ticket),
		failFor: make(map[int64]error),
	}
	for _, t := range tickets {
		s.tickets[t.ID] = t
	}
	return s
}

func (s *fakeTicketStore) FindMonitorable(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		if !t.Status.Terminal() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeTicketStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, errors.New("ticket not found")
	}
	copied := *t
	return &copied, nil
}

func (s *fakeTicketStore) UpdateSLAFields(ctx context.Context, update repository.SLAFieldsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[update.TicketID]; err != nil {
		return err
	}
	s.updates = append(s.updates, update)
	t := s.tickets[update.TicketID]
	t.SLA.RuleID = update.RuleID
	t.SLA.ResponseDue = update.ResponseDue
	t.SLA.ResolutionDue = update.ResolutionDue
	t.SLA.ResponseState = update.ResponseState
	t.SLA.ResolutionState = update.ResolutionState
	return nil
}

type fakeRuleSource struct {
	rules []domain.SlaRule
	err   error
}

func (f *fakeRuleSource) ActiveRules(ctx context.Context) ([]domain.SlaRule, error) {
	return f.rules, f.err
}

type fakeRunStore struct {
	mu     sync.Mutex
	deltas []domain.MonitoringRun
}

func (f *fakeRunStore) Accumulate(ctx context.Context, delta domain.MonitoringRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deltas = append(f.deltas, delta)
	return nil
}

func (f *fakeRunStore) Latest(ctx context.Context) (*domain.MonitoringRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total domain.MonitoringRun
	for _, d := range f.deltas {
		total.Processed += d.Processed
		total.Warnings += d.Warnings
		total.Breaches += d.Breaches
		total.Escalations += d.Escalations
		total.Failures += d.Failures
		total.LastCheck = d.LastCheck
	}
	return &total, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type countingEscalation struct {
	calls int
}

func (c *countingEscalation) Escalate(ctx context.Context, ticket *domain.Ticket, clock domain.ClockType, rule *domain.SlaRule) bool {
	c.calls++
	return true
}

type openHours struct{}

func (openHours) ActiveHours(ctx context.Context, entityID int64) ([]domain.BusinessHours, error) {
	return nil, nil
}

type monitorFixture struct {
	service    *MonitorService
	tickets    *fakeTicketStore
	rules      *fakeRuleSource
	runs       *fakeRunStore
	dispatcher *recordingDispatcher
	escalation *countingEscalation
	now        *time.Time
}

func newMonitorFixture(t *testing.T, rules []domain.SlaRule, tickets ...*domain.Ticket) *monitorFixture {
	t.Helper()
	logger := zap.NewNop()
	f := &monitorFixture{
		tickets:    newFakeTicketStore(tickets...),
		rules:      &fakeRuleSource{rules: rules},
		runs:       &fakeRunStore{},
		dispatcher: &recordingDispatcher{},
		escalation: &countingEscalation{},
		now:        ptr(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
	}
	f.service = NewMonitorService(MonitorDependencies{
		TicketStore:      f.tickets,
		Rules:            f.rules,
		Calculator:       sla.NewCalculator(sla.NewCalendar(openHours{}, logger)),
		RunStore:         f.runs,
		Dispatcher:       f.dispatcher,
		Escalation:       f.escalation,
		Metrics:          observability.NewMetrics(),
		Logger:           logger,
		WarningThreshold: 0.80,
		Now:              func() time.Time { return *f.now },
	})
	return f
}

func (f *monitorFixture) advanceTo(t time.Time) { *f.now = t }

func openTicket(id int64, createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:        id,
		Number:    "TKT-000" + string(rune('0'+id)),
		EntityID:  7,
		Priority:  domain.TicketPriorityHigh,
		Status:    domain.TicketStatusOpen,
		CreatedAt: createdAt,
		SLA: domain.TicketSLA{
			ResponseState:   domain.ClockActive,
			ResolutionState: domain.ClockActive,
		},
	}
}

func standardRule() domain.SlaRule {
	return domain.SlaRule{
		ID:                  1,
		Name:                "standard",
		ResponseTimeHours:   ptr(4.0),
		ResolutionTimeHours: ptr(24.0),
		IsActive:            true,
		CreatedAt:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunPassMaterializesDueDates(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, openTicket(1, created))
	f.advanceTo(created.Add(30 * time.Minute))

	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Zero(t, result.Warnings)
	assert.Zero(t, result.Breaches)
	assert.Zero(t, result.Failures)

	stored, err := f.tickets.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, stored.SLA.ResponseDue)
	require.NotNil(t, stored.SLA.ResolutionDue)
	assert.Equal(t, created.Add(4*time.Hour), *stored.SLA.ResponseDue)
	assert.Equal(t, created.Add(24*time.Hour), *stored.SLA.ResolutionDue)
	assert.Equal(t, domain.ClockActive, stored.SLA.ResponseState)
	require.NotNil(t, stored.SLA.RuleID)
	assert.Equal(t, int64(1), *stored.SLA.RuleID)
}

func TestRunPassWarningFiresExactlyOnce(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, openTicket(1, created))

	// 4h response target warns at 80%, i.e. 3h12m after creation.
	f.advanceTo(created.Add(3*time.Hour + 30*time.Minute))
	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Warnings)
	assert.Len(t, f.dispatcher.byType(events.EventSLAWarning), 1)

	stored, _ := f.tickets.GetByID(context.Background(), 1)
	assert.Equal(t, domain.ClockWarning, stored.SLA.ResponseState)
	assert.Equal(t, domain.ClockActive, stored.SLA.ResolutionState)

	// Same instant again: nothing moves, nothing refires.
	result, err = f.service.RunPass(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Warnings)
	assert.Len(t, f.dispatcher.byType(events.EventSLAWarning), 1)
}

func TestRunPassWarningThenBreach(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, openTicket(1, created))

	f.advanceTo(created.Add(3*time.Hour + 30*time.Minute))
	_, err := f.service.RunPass(context.Background())
	require.NoError(t, err)

	f.advanceTo(created.Add(4*time.Hour + time.Second))
	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Breaches)

	stored, _ := f.tickets.GetByID(context.Background(), 1)
	assert.Equal(t, domain.ClockBreached, stored.SLA.ResponseState)

	// Breached is terminal for the clock.
	f.advanceTo(created.Add(6 * time.Hour))
	result, err = f.service.RunPass(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Breaches)
	assert.Len(t, f.dispatcher.byType(events.EventSLABreach), 1)
}

func TestRunPassSkipsRespondedClock(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ticket := openTicket(1, created)
	ticket.FirstResponseAt = ptr(created.Add(time.Hour))
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, ticket)

	// Well past the response due, but the ticket was answered in time.
	f.advanceTo(created.Add(10 * time.Hour))
	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Breaches)
	stored, _ := f.tickets.GetByID(context.Background(), 1)
	assert.Equal(t, domain.ClockActive, stored.SLA.ResponseState)
}

func TestRunPassNoApplicableRule(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, nil, openTicket(1, created))
	f.advanceTo(created.Add(100 * time.Hour))

	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Zero(t, result.Failures)
	assert.Empty(t, f.tickets.updates)
	assert.Empty(t, f.dispatcher.byType(events.EventSLAWarning))
	assert.Empty(t, f.dispatcher.byType(events.EventSLABreach))
}

func TestRunPassIsolatesPerTicketFailures(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()},
		openTicket(1, created), openTicket(2, created))
	f.tickets.failFor[1] = apperrors.ErrStateConflict
	f.advanceTo(created.Add(5 * time.Hour))

	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, 1, result.Breaches)

	stored, _ := f.tickets.GetByID(context.Background(), 2)
	assert.Equal(t, domain.ClockBreached, stored.SLA.ResponseState)
}

func TestRunPassEscalatesOnBreach(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rule := standardRule()
	rule.EscalationTimeHours = ptr(1.0)
	f := newMonitorFixture(t, []domain.SlaRule{rule}, openTicket(1, created))
	f.advanceTo(created.Add(5 * time.Hour))

	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Breaches)
	assert.Equal(t, 1, result.Escalations)
	assert.Equal(t, 1, f.escalation.calls)
}

func TestRunPassNoEscalationWithoutTarget(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, openTicket(1, created))
	f.advanceTo(created.Add(5 * time.Hour))

	result, err := f.service.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Breaches)
	assert.Zero(t, result.Escalations)
	assert.Zero(t, f.escalation.calls)
}

func TestRunPassAbortsOnRuleLoadFailure(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, nil, openTicket(1, created))
	f.rules.err = errors.New("connection refused")

	_, err := f.service.RunPass(context.Background())
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "SYSTEMIC_FAILURE", domainErr.Code)
	assert.Empty(t, f.runs.deltas)
}

func TestRunPassAccumulatesCounters(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, openTicket(1, created))

	f.advanceTo(created.Add(5 * time.Hour))
	_, err := f.service.RunPass(context.Background())
	require.NoError(t, err)
	_, err = f.service.RunPass(context.Background())
	require.NoError(t, err)

	run, snapshot, err := f.service.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), run.Processed)
	assert.Equal(t, int64(1), run.Breaches)
	assert.Equal(t, int64(2), snapshot.Passes)
	assert.Equal(t, int64(1), snapshot.Breaches)

	complete := f.dispatcher.byType(events.EventMonitoringComplete)
	assert.Len(t, complete, 2)
}

func TestCheckTicketSkipsTerminal(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ticket := openTicket(1, created)
	ticket.Status = domain.TicketStatusClosed
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, ticket)
	f.advanceTo(created.Add(100 * time.Hour))

	result, err := f.service.CheckTicket(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, result.Warnings)
	assert.Zero(t, result.Breaches)
	assert.Empty(t, f.tickets.updates)
}

func TestCheckTicketEvaluatesSingleTicket(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, openTicket(1, created))
	f.advanceTo(created.Add(5 * time.Hour))

	result, err := f.service.CheckTicket(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Breaches)
	assert.Len(t, f.dispatcher.byType(events.EventSLABreach), 1)
}

func TestResetTicketSLA(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ticket := openTicket(1, created)
	ticket.SLA.ResponseState = domain.ClockBreached
	ticket.SLA.ResolutionState = domain.ClockWarning
	ticket.SLA.ResponseDue = ptr(created.Add(4 * time.Hour))
	ticket.SLA.ResolutionDue = ptr(created.Add(24 * time.Hour))
	f := newMonitorFixture(t, []domain.SlaRule{standardRule()}, ticket)

	resetAt := created.Add(48 * time.Hour)
	f.advanceTo(resetAt)
	require.NoError(t, f.service.ResetTicketSLA(context.Background(), 1))

	stored, _ := f.tickets.GetByID(context.Background(), 1)
	assert.Equal(t, domain.ClockActive, stored.SLA.ResponseState)
	assert.Equal(t, domain.ClockActive, stored.SLA.ResolutionState)
	require.NotNil(t, stored.SLA.ResponseDue)
	assert.Equal(t, resetAt.Add(4*time.Hour), *stored.SLA.ResponseDue)
	assert.Len(t, f.dispatcher.byType(events.EventSLAReset), 1)
}

func TestResetTicketSLANoRule(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newMonitorFixture(t, nil, openTicket(1, created))

	err := f.service.ResetTicketSLA(context.Background(), 1)
	require.ErrorIs(t, err, apperrors.ErrNoApplicableRule)
	assert.Empty(t, f.tickets.updates)
}
