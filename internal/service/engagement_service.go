package service

import (
	"context"
	"errors"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/store"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// GateState is the per-issue engagement gate state.
type GateState string

const (
	// GateNoDecision: the tip decision has not been made yet.
	GateNoDecision GateState = "no_decision"
	// GateDecisionMade: tipped or skipped, review still pending.
	GateDecisionMade GateState = "decision_made"
	// GateReviewed is absorbing: once observed, both phases stay closed.
	GateReviewed GateState = "reviewed"
)

// GateStateOf derives the gate state from an issue snapshot. An
// observed isReviewed latch wins regardless of how it was reached,
// since the snapshot may be stale relative to other writers.
func GateStateOf(issue domain.Issue) GateState {
	if issue.IsReviewed {
		return GateReviewed
	}
	if issue.TipDecisionMade() {
		return GateDecisionMade
	}
	return GateNoDecision
}

// EngagementService runs the tip-then-review gate overlaid on the
// Resolved state.
type EngagementService struct {
	client     store.Client
	dispatcher events.Dispatcher
}

// NewEngagementService constructs the service.
func NewEngagementService(client store.Client, dispatcher events.Dispatcher) *EngagementService {
	return &EngagementService{client: client, dispatcher: dispatcher}
}

// SkipTip records an explicit tip decline. The write is conditional on
// the decision not having been made; a racing session surfaces as
// CAS_CONFLICT instead of silently overwriting the latch.
func (s *EngagementService) SkipTip(ctx context.Context, actor domain.Identity, issueID string) error {
	issue, err := s.gateIssue(ctx, actor, issueID)
	if err != nil {
		return err
	}
	switch GateStateOf(issue) {
	case GateReviewed:
		return apperrors.NewForbidden("issue already reviewed")
	case GateDecisionMade:
		return apperrors.NewCasConflict("tip decision already made", map[string]any{"id": issueID})
	}

	expect := map[string]any{
		domain.FieldTipAmount:  int64(0),
		domain.FieldTipSkipped: false,
		domain.FieldIsReviewed: false,
	}
	fields := map[string]any{domain.FieldTipSkipped: true}
	if err := s.client.UpdateFieldsIf(ctx, reconcile.IssuesPath, issueID, expect, fields); err != nil {
		switch {
		case errors.Is(err, store.ErrCasConflict):
			return apperrors.NewCasConflict("tip decision already made", map[string]any{"id": issueID})
		case errors.Is(err, store.ErrNotFound):
			return apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return apperrors.NewTransportError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventTipSkipped,
		IssueID: issueID,
		Actor:   events.Actor{UID: actor.UID, Role: actor.Role},
	})
	return nil
}

// SendTip adds amount to the issue's tip total. Increments from
// concurrent sessions compose additively; a tip also clears the skip
// flag, so tipping overrides an earlier skip.
func (s *EngagementService) SendTip(ctx context.Context, actor domain.Identity, issueID string, amount int64) error {
	if amount <= 0 {
		return apperrors.NewValidationError("tip amount must be positive", map[string]any{"amount": amount})
	}
	issue, err := s.gateIssue(ctx, actor, issueID)
	if err != nil {
		return err
	}
	if GateStateOf(issue) == GateReviewed {
		return apperrors.NewForbidden("issue already reviewed")
	}

	if err := s.client.IncrementField(ctx, reconcile.IssuesPath, issueID, domain.FieldTipAmount, amount); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return apperrors.NewTransportError(err)
	}
	// The increment already latched the decision (tipAmount > 0), so a
	// failure here leaves the gate consistent.
	if err := s.client.UpdateFields(ctx, reconcile.IssuesPath, issueID, map[string]any{domain.FieldTipSkipped: false}); err != nil {
		return apperrors.NewTransportError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventTipRecorded,
		IssueID: issueID,
		Actor:   events.Actor{UID: actor.UID, Role: actor.Role},
		Payload: events.TipRecordedPayload{Amount: amount},
	})
	return nil
}

// SubmitReview closes the gate for good. Eligible only when the issue
// is Resolved, the tip decision is made and no review exists yet; the
// isReviewed latch write is conditional so two racing sessions cannot
// both succeed.
func (s *EngagementService) SubmitReview(ctx context.Context, actor domain.Identity, issueID string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	issue, err := s.gateIssue(ctx, actor, issueID)
	if err != nil {
		return err
	}
	switch GateStateOf(issue) {
	case GateReviewed:
		return apperrors.NewForbidden("issue already reviewed")
	case GateNoDecision:
		return apperrors.NewForbidden("tip decision required before review")
	}

	expect := map[string]any{domain.FieldIsReviewed: false}
	fields := map[string]any{
		domain.FieldRating:     rating,
		domain.FieldReview:     comment,
		domain.FieldIsReviewed: true,
	}
	if err := s.client.UpdateFieldsIf(ctx, reconcile.IssuesPath, issueID, expect, fields); err != nil {
		switch {
		case errors.Is(err, store.ErrCasConflict):
			return apperrors.NewCasConflict("review already submitted", map[string]any{"id": issueID})
		case errors.Is(err, store.ErrNotFound):
			return apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return apperrors.NewTransportError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventReviewSubmitted,
		IssueID: issueID,
		Actor:   events.Actor{UID: actor.UID, Role: actor.Role},
		Payload: events.ReviewSubmittedPayload{Rating: rating},
	})
	return nil
}

// gateIssue loads the issue and checks the phase-independent
// preconditions: the caller owns the issue and it is Resolved.
func (s *EngagementService) gateIssue(ctx context.Context, actor domain.Identity, issueID string) (domain.Issue, error) {
	doc, err := s.client.GetDocument(ctx, reconcile.IssuesPath, issueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Issue{}, apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return domain.Issue{}, apperrors.NewTransportError(err)
	}
	issue := domain.IssueFromFields(doc.ID, doc.CreatedAt, doc.Fields)
	if !actor.Owns(issue) {
		return domain.Issue{}, apperrors.NewForbidden("only the reporter engages with this issue")
	}
	if issue.Status != domain.IssueStatusResolved {
		return domain.Issue{}, apperrors.NewForbidden("engagement opens once the issue is resolved")
	}
	return issue, nil
}
