package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/config"
	"github.com/spec-kit/issue-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
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
	n.dispatcher.Subscribe(events.EventIssueReported, n.handleIssueReported)
	n.dispatcher.Subscribe(events.EventIssueStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventIssueDeleted, n.handleIssueDeleted)
	n.dispatcher.Subscribe(events.EventTipRecorded, n.handleEngagement)
	n.dispatcher.Subscribe(events.EventTipSkipped, n.handleEngagement)
	n.dispatcher.Subscribe(events.EventReviewSubmitted, n.handleEngagement)
	n.dispatcher.Subscribe(events.EventMessagePosted, n.handleMessagePosted)
}

func (n *NotificationService) handleIssueReported(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueReported", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueStatusChanged", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleIssueDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueDeleted", zap.String("issue_id", event.IssueID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEngagement(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMessagePosted(ctx context.Context, event events.Event) error {
	n.logger.Info("MessagePosted", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("issue_id", event.IssueID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("issue_id", event.IssueID),
		zap.String("event_type", string(event.Type)))
}
