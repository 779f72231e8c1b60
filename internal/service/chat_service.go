package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/store"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// ChatService runs the append-only message channel scoped to one
// issue, between the admin and contractor roles. Messages are never
// edited or deleted.
type ChatService struct {
	client     store.Client
	reconciler *reconcile.Reconciler
	dispatcher events.Dispatcher
}

// NewChatService constructs the service.
func NewChatService(client store.Client, reconciler *reconcile.Reconciler, dispatcher events.Dispatcher) *ChatService {
	return &ChatService{client: client, reconciler: reconciler, dispatcher: dispatcher}
}

// Post appends a message to the issue's channel with a server-assigned
// timestamp.
func (s *ChatService) Post(ctx context.Context, actor domain.Identity, issueID, text string) (domain.ChatMessage, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleContractor {
		return domain.ChatMessage{}, apperrors.NewForbidden("channel is between admin and contractor")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, apperrors.NewValidationError("message text required", nil)
	}

	if _, err := s.client.GetDocument(ctx, reconcile.IssuesPath, issueID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ChatMessage{}, apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return domain.ChatMessage{}, apperrors.NewTransportError(err)
	}

	fields := map[string]any{
		domain.FieldMessageText:       text,
		domain.FieldMessageSenderRole: string(actor.Role),
	}
	doc, err := s.client.AppendToSubcollection(ctx, reconcile.IssuesPath, issueID, reconcile.MessagesSub, fields)
	if err != nil {
		return domain.ChatMessage{}, apperrors.NewTransportError(err)
	}
	msg := domain.MessageFromFields(doc.ID, issueID, doc.CreatedAt, doc.Fields)

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventMessagePosted,
		IssueID: issueID,
		Actor:   events.Actor{UID: actor.UID, Role: actor.Role},
		Payload: events.MessagePostedPayload{
			MessageID:   msg.ID,
			SenderRole:  msg.SenderRole,
			TextPreview: textPreview(msg.Text, 120),
		},
	})
	return msg, nil
}

// Channel attaches a live, ascending-ordered scope over the issue's
// message subcollection. The caller must Close the scope on exit.
func (s *ChatService) Channel(ctx context.Context, issueID string) (*reconcile.Scope, error) {
	return s.reconciler.Messages(ctx, issueID)
}

func textPreview(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}
