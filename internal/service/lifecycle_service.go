package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/store"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// LifecycleService validates and performs issue status transitions,
// creates issues for the citizen report flow and removes them for
// admins.
type LifecycleService struct {
	client     store.Client
	dispatcher events.Dispatcher
}

// NewLifecycleService constructs the service.
func NewLifecycleService(client store.Client, dispatcher events.Dispatcher) *LifecycleService {
	return &LifecycleService{client: client, dispatcher: dispatcher}
}

// ReportInput describes the citizen report payload. AIAnalysis is
// advisory content from the external analysis provider, stored
// verbatim.
type ReportInput struct {
	Title        string
	Description  string
	LocationText string
	ImageURL     string
	AIAnalysis   *domain.AIAnalysis
}

// Report creates a new Open issue owned by the reporting identity.
func (s *LifecycleService) Report(ctx context.Context, actor domain.Identity, input ReportInput) (domain.Issue, error) {
	if actor.Role != domain.RoleCitizen {
		return domain.Issue{}, apperrors.NewForbidden("only citizens report issues")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Issue{}, apperrors.NewValidationError("title required", nil)
	}

	fields := map[string]any{
		domain.FieldStatus:        string(domain.IssueStatusOpen),
		domain.FieldTitle:         title,
		domain.FieldDescription:   strings.TrimSpace(input.Description),
		domain.FieldLocationText:  strings.TrimSpace(input.LocationText),
		domain.FieldImageURL:      input.ImageURL,
		domain.FieldReporterID:    actor.UID,
		domain.FieldReporterEmail: actor.Email,
		domain.FieldTipAmount:     int64(0),
		domain.FieldTipSkipped:    false,
		domain.FieldIsReviewed:    false,
	}
	if input.AIAnalysis != nil {
		fields[domain.FieldAIAnalysis] = map[string]any{
			"category": input.AIAnalysis.Category,
			"summary":  input.AIAnalysis.Summary,
		}
	}

	doc, err := s.client.CreateDocument(ctx, reconcile.IssuesPath, fields)
	if err != nil {
		return domain.Issue{}, apperrors.NewTransportError(err)
	}
	issue := domain.IssueFromFields(doc.ID, doc.CreatedAt, doc.Fields)

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueReported,
		IssueID: issue.ID,
		Actor:   events.Actor{UID: actor.UID, Role: actor.Role},
		Payload: events.IssueReportedPayload{
			Title:      issue.Title,
			Category:   categoryOf(issue),
			ReporterID: issue.ReporterID,
			Status:     issue.Status,
		},
	})
	return issue, nil
}

// Advance moves an issue forward in the fixed lifecycle order, or
// performs a same-state write carrying only auxiliary fields such as
// the contractor name. A target that precedes the current status is
// rejected, never clamped.
func (s *LifecycleService) Advance(ctx context.Context, actor domain.Identity, issueID string, newStatus domain.IssueStatus, contractorName string) (domain.Issue, error) {
	if actor.Role != domain.RoleContractor && actor.Role != domain.RoleAdmin {
		return domain.Issue{}, apperrors.NewForbidden("only contractors and admins advance issues")
	}
	if !domain.KnownStatus(newStatus) {
		return domain.Issue{}, apperrors.NewValidationError("unknown status", map[string]any{"status": string(newStatus)})
	}

	current, err := s.getIssue(ctx, issueID)
	if err != nil {
		return domain.Issue{}, err
	}
	if domain.ProgressStep(newStatus) < domain.ProgressStep(current.Status) {
		return domain.Issue{}, apperrors.NewInvalidTransition(string(current.Status), string(newStatus))
	}

	fields := map[string]any{domain.FieldStatus: string(newStatus)}
	if name := strings.TrimSpace(contractorName); name != "" {
		fields[domain.FieldContractorName] = name
	}
	if err := s.client.UpdateFields(ctx, reconcile.IssuesPath, issueID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Issue{}, apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return domain.Issue{}, apperrors.NewTransportError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: issueID,
		Actor:   events.Actor{UID: actor.UID, Role: actor.Role},
		Payload: events.IssueStatusChangedPayload{
			OldStatus:      current.Status,
			NewStatus:      newStatus,
			ContractorName: strings.TrimSpace(contractorName),
		},
	})

	updated := current
	updated.Status = newStatus
	if name := strings.TrimSpace(contractorName); name != "" {
		updated.ContractorName = name
	}
	return updated, nil
}

// Remove hard-deletes an issue. Terminal, unconditional and
// idempotent: removing an already-removed issue succeeds.
func (s *LifecycleService) Remove(ctx context.Context, actor domain.Identity, issueID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only admins remove issues")
	}
	if err := s.client.DeleteDocument(ctx, reconcile.IssuesPath, issueID); err != nil {
		return apperrors.NewTransportError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueDeleted,
		IssueID: issueID,
		Actor:   events.Actor{UID: actor.UID, Role: actor.Role},
	})
	return nil
}

func (s *LifecycleService) getIssue(ctx context.Context, issueID string) (domain.Issue, error) {
	doc, err := s.client.GetDocument(ctx, reconcile.IssuesPath, issueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Issue{}, apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return domain.Issue{}, apperrors.NewTransportError(err)
	}
	return domain.IssueFromFields(doc.ID, doc.CreatedAt, doc.Fields), nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func categoryOf(issue domain.Issue) string {
	if issue.AIAnalysis == nil {
		return ""
	}
	return issue.AIAnalysis.Category
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = timeNow()
	}
	_ = dispatcher.Publish(ctx, event)
}
