package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/store"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

var (
	citizen    = domain.Identity{UID: "uid-citizen", Email: "citizen@example.com", Role: domain.RoleCitizen}
	contractor = domain.Identity{UID: "uid-contractor", Role: domain.RoleContractor}
	admin      = domain.Identity{UID: "uid-admin", Role: domain.RoleAdmin}
)

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return domainErr.Code
}

func newLifecycleFixture(t *testing.T) (*LifecycleService, *store.MemoryClient, events.Dispatcher) {
	t.Helper()
	client := store.NewMemoryClient()
	dispatcher := events.NewInMemoryDispatcher()
	return NewLifecycleService(client, dispatcher), client, dispatcher
}

func TestReportCreatesOpenIssue(t *testing.T) {
	ctx := context.Background()
	svc, client, _ := newLifecycleFixture(t)

	issue, err := svc.Report(ctx, citizen, ReportInput{
		Title:        "  Broken streetlight  ",
		Description:  "pole leaning",
		LocationText: "5th and Main",
		AIAnalysis:   &domain.AIAnalysis{Category: "lighting", Summary: "pole damage"},
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if issue.Status != domain.IssueStatusOpen {
		t.Fatalf("status = %q, want Open", issue.Status)
	}
	if issue.Title != "Broken streetlight" {
		t.Fatalf("title not trimmed: %q", issue.Title)
	}
	if issue.ReporterID != citizen.UID || issue.ReporterEmail != citizen.Email {
		t.Fatalf("reporter identity not recorded: %+v", issue)
	}
	if issue.AIAnalysis == nil || issue.AIAnalysis.Category != "lighting" {
		t.Fatalf("analysis not stored: %+v", issue.AIAnalysis)
	}

	// The tip and review latches are seeded so conditional writes can
	// compare against concrete prior values.
	doc, err := client.GetDocument(ctx, reconcile.IssuesPath, issue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Fields[domain.FieldTipAmount] != int64(0) || doc.Fields[domain.FieldTipSkipped] != false || doc.Fields[domain.FieldIsReviewed] != false {
		t.Fatalf("gate fields not seeded: %+v", doc.Fields)
	}
}

func TestReportValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLifecycleFixture(t)

	tests := []struct {
		name     string
		actor    domain.Identity
		input    ReportInput
		wantCode string
	}{
		{"contractor cannot report", contractor, ReportInput{Title: "x"}, "FORBIDDEN"},
		{"admin cannot report", admin, ReportInput{Title: "x"}, "FORBIDDEN"},
		{"empty title", citizen, ReportInput{Title: "   "}, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Report(ctx, tt.actor, tt.input)
			if code := errCode(t, err); code != tt.wantCode {
				t.Fatalf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestAdvanceWalksLifecycleForward(t *testing.T) {
	ctx := context.Background()
	svc, client, _ := newLifecycleFixture(t)

	issue, err := svc.Report(ctx, citizen, ReportInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	steps := []struct {
		actor  domain.Identity
		status domain.IssueStatus
	}{
		{contractor, domain.IssueStatusAccepted},
		{contractor, domain.IssueStatusInProgress},
		{admin, domain.IssueStatusResolved},
	}
	for _, step := range steps {
		updated, err := svc.Advance(ctx, step.actor, issue.ID, step.status, "")
		if err != nil {
			t.Fatalf("advance to %q: %v", step.status, err)
		}
		if updated.Status != step.status {
			t.Fatalf("status = %q, want %q", updated.Status, step.status)
		}
	}

	doc, err := client.GetDocument(ctx, reconcile.IssuesPath, issue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Fields[domain.FieldStatus] != string(domain.IssueStatusResolved) {
		t.Fatalf("stored status = %v, want Resolved", doc.Fields[domain.FieldStatus])
	}
}

func TestAdvanceRejectsBackwardMoves(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLifecycleFixture(t)

	issue, err := svc.Report(ctx, citizen, ReportInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := svc.Advance(ctx, contractor, issue.ID, domain.IssueStatusInProgress, ""); err != nil {
		t.Fatalf("advance: %v", err)
	}

	_, err = svc.Advance(ctx, contractor, issue.ID, domain.IssueStatusAccepted, "")
	if code := errCode(t, err); code != "INVALID_TRANSITION" {
		t.Fatalf("code = %q, want INVALID_TRANSITION", code)
	}

	// The rejected write must not have touched the document.
	current, err := svc.getIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != domain.IssueStatusInProgress {
		t.Fatalf("status changed by rejected write: %q", current.Status)
	}
}

func TestAdvanceSameStateCarriesContractorName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLifecycleFixture(t)

	issue, err := svc.Report(ctx, citizen, ReportInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := svc.Advance(ctx, contractor, issue.ID, domain.IssueStatusAccepted, "Road Crew 7"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Re-asserting the current status with a new crew name is allowed.
	updated, err := svc.Advance(ctx, admin, issue.ID, domain.IssueStatusAccepted, "Road Crew 9")
	if err != nil {
		t.Fatalf("same-state advance: %v", err)
	}
	if updated.Status != domain.IssueStatusAccepted || updated.ContractorName != "Road Crew 9" {
		t.Fatalf("unexpected issue: %+v", updated)
	}
}

func TestAdvanceRejections(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLifecycleFixture(t)

	issue, err := svc.Report(ctx, citizen, ReportInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	tests := []struct {
		name     string
		actor    domain.Identity
		issueID  string
		status   domain.IssueStatus
		wantCode string
	}{
		{"citizen cannot advance", citizen, issue.ID, domain.IssueStatusAccepted, "FORBIDDEN"},
		{"unknown status", contractor, issue.ID, "Archived", "VALIDATION_FAILED"},
		{"missing issue", contractor, "missing", domain.IssueStatusAccepted, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Advance(ctx, tt.actor, tt.issueID, tt.status, "")
			if code := errCode(t, err); code != tt.wantCode {
				t.Fatalf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, client, _ := newLifecycleFixture(t)

	issue, err := svc.Report(ctx, citizen, ReportInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if err := svc.Remove(ctx, citizen, issue.ID); errCode(t, err) != "FORBIDDEN" {
		t.Fatal("expected citizen removal to be forbidden")
	}
	if err := svc.Remove(ctx, admin, issue.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Removing an already-removed issue succeeds.
	if err := svc.Remove(ctx, admin, issue.ID); err != nil {
		t.Fatalf("repeat remove: %v", err)
	}
	if _, err := client.GetDocument(ctx, reconcile.IssuesPath, issue.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after remove err = %v, want ErrNotFound", err)
	}
}
