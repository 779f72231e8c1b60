package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/api/dto"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/identity"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/service"
	"github.com/spec-kit/issue-service/internal/store"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// IssuesHandler manages issue lifecycle and engagement endpoints.
type IssuesHandler struct {
	lifecycle  *service.LifecycleService
	engagement *service.EngagementService
	reconciler *reconcile.Reconciler
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(lifecycle *service.LifecycleService, engagement *service.EngagementService, reconciler *reconcile.Reconciler) *IssuesHandler {
	return &IssuesHandler{lifecycle: lifecycle, engagement: engagement, reconciler: reconciler}
}

// Report POST /issues.
func (h *IssuesHandler) Report(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.ReportIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.ReportInput{
		Title:        req.Title,
		Description:  req.Description,
		LocationText: req.LocationText,
		ImageURL:     req.ImageURL,
	}
	if req.AIAnalysis != nil {
		input.AIAnalysis = &domain.AIAnalysis{
			Category: req.AIAnalysis.Category,
			Summary:  req.AIAnalysis.Summary,
		}
	}
	issue, err := h.lifecycle.Report(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": issueResponse(issue)})
}

// List GET /issues. Returns the latest full collection snapshot,
// newest first.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	if _, ok := identity.FromContext(c); !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	snapshot, err := currentSnapshot(c.UserContext(), h.reconciler, store.Query{Path: reconcile.IssuesPath, Descending: true})
	if err != nil {
		return err
	}
	issues := service.IssuesFromSnapshot(snapshot)
	items := make([]dto.IssueResponse, 0, len(issues))
	for _, issue := range issues {
		items = append(items, issueResponse(issue))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Advance POST /issues/:id/status.
func (h *IssuesHandler) Advance(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.AdvanceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.lifecycle.Advance(c.UserContext(), actor, c.Params("id"), domain.IssueStatus(req.Status), req.ContractorName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponse(issue)})
}

// Remove DELETE /issues/:id.
func (h *IssuesHandler) Remove(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	if err := h.lifecycle.Remove(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SendTip POST /issues/:id/tip.
func (h *IssuesHandler) SendTip(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.SendTipRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.engagement.SendTip(c.UserContext(), actor, c.Params("id"), req.Amount); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SkipTip POST /issues/:id/tip/skip.
func (h *IssuesHandler) SkipTip(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	if err := h.engagement.SkipTip(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SubmitReview POST /issues/:id/review.
func (h *IssuesHandler) SubmitReview(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.SubmitReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.engagement.SubmitReview(c.UserContext(), actor, c.Params("id"), req.Rating, req.Comment); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MyStats GET /me/stats. Pure recomputation over the latest snapshot.
func (h *IssuesHandler) MyStats(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	snapshot, err := currentSnapshot(c.UserContext(), h.reconciler, store.Query{Path: reconcile.IssuesPath, Descending: true})
	if err != nil {
		return err
	}
	stats := service.ComputeReporterStats(service.IssuesFromSnapshot(snapshot), actor)
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Total:      stats.Total,
		InProgress: stats.InProgress,
		Resolved:   stats.Resolved,
	}})
}

// Stream GET /issues/stream. Server-sent events pushing every
// republished snapshot of the issue collection.
func (h *IssuesHandler) Stream(c *fiber.Ctx) error {
	if _, ok := identity.FromContext(c); !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	return streamSnapshots(c, h.reconciler, store.Query{Path: reconcile.IssuesPath, Descending: true}, func(snapshot store.Snapshot) any {
		issues := service.IssuesFromSnapshot(snapshot)
		items := make([]dto.IssueResponse, 0, len(issues))
		for _, issue := range issues {
			items = append(items, issueResponse(issue))
		}
		return items
	})
}

// currentSnapshot attaches a short-lived scope and returns the latest
// snapshot. The scope is always released.
func currentSnapshot(ctx context.Context, reconciler *reconcile.Reconciler, query store.Query) (store.Snapshot, error) {
	scope, err := reconciler.Attach(ctx, query)
	if err != nil {
		return store.Snapshot{}, apperrors.NewTransportError(err)
	}
	defer scope.Close()

	select {
	case snapshot, ok := <-scope.Snapshots():
		if !ok {
			return store.Snapshot{}, apperrors.NewTransportError(context.Canceled)
		}
		return snapshot, nil
	case <-ctx.Done():
		return store.Snapshot{}, apperrors.NewTransportError(ctx.Err())
	}
}

func issueResponse(issue domain.Issue) dto.IssueResponse {
	resp := dto.IssueResponse{
		ID:             issue.ID,
		Status:         issue.Status,
		ProgressStep:   domain.ProgressStep(issue.Status),
		Title:          issue.Title,
		Description:    issue.Description,
		LocationText:   issue.LocationText,
		ImageURL:       issue.ImageURL,
		ContractorName: issue.ContractorName,
		TipAmount:      issue.TipAmount,
		TipSkipped:     issue.TipSkipped,
		IsReviewed:     issue.IsReviewed,
		Rating:         issue.Rating,
		Review:         issue.Review,
		GateState:      string(service.GateStateOf(issue)),
		CreatedAt:      issue.CreatedAt,
	}
	if issue.AIAnalysis != nil {
		resp.AIAnalysis = &dto.AIAnalysisPayload{
			Category: issue.AIAnalysis.Category,
			Summary:  issue.AIAnalysis.Summary,
		}
	}
	return resp
}
