package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-monitor/internal/config"
	"github.com/spec-kit/sla-monitor/internal/events"
)

// NotificationService delivers notifications for SLA events. Delivery is
// best effort; a failed send never affects the persisted clock state.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLAWarning, n.handleWarning)
	n.dispatcher.Subscribe(events.EventSLABreach, n.handleBreach)
	n.dispatcher.Subscribe(events.EventSLAEscalation, n.handleEscalation)
	n.dispatcher.Subscribe(events.EventSLAReset, n.handleReset)
	n.dispatcher.Subscribe(events.EventMonitoringComplete, n.handleMonitoringComplete)
}

// handleWarning notifies the assignee that a deadline is approaching.
func (n *NotificationService) handleWarning(ctx context.Context, event events.Event) error {
	n.logger.Info("SLAWarning", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.SLATransitionPayload); ok && payload.AssignedTo != nil {
		n.sendEmailNotificationStub(ctx, event, assigneeRecipient(*payload.AssignedTo))
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// handleBreach notifies the assignee and the manager list.
func (n *NotificationService) handleBreach(ctx context.Context, event events.Event) error {
	n.logger.Info("SLABreach", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.SLATransitionPayload); ok && payload.AssignedTo != nil {
		n.sendEmailNotificationStub(ctx, event, assigneeRecipient(*payload.AssignedTo))
	}
	n.sendEmailNotificationStub(ctx, event, n.cfg.ManagerEmails...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEscalation(ctx context.Context, event events.Event) error {
	n.logger.Info("SLAEscalation", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event, n.cfg.ManagerEmails...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleReset(ctx context.Context, event events.Event) error {
	n.logger.Info("SLAReset", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMonitoringComplete(ctx context.Context, event events.Event) error {
	n.logger.Debug("SLAMonitoringComplete", zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, recipients ...string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || len(recipients) == 0 {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Strings("to", recipients),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

// assigneeRecipient derives a directory address for a staff id. Address
// resolution against a user directory is out of scope here.
func assigneeRecipient(staffID int64) string {
	return "staff-" + strconv.FormatInt(staffID, 10) + "@example.com"
}
