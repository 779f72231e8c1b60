package domain

import (
	"testing"
	"time"
)

func TestProgressStep(t *testing.T) {
	tests := []struct {
		name   string
		status IssueStatus
		want   int
	}{
		{"open", IssueStatusOpen, 0},
		{"accepted", IssueStatusAccepted, 1},
		{"in progress", IssueStatusInProgress, 2},
		{"resolved", IssueStatusResolved, 3},
		{"unknown maps to zero", IssueStatus("Archived"), 0},
		{"empty maps to zero", IssueStatus(""), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressStep(tt.status); got != tt.want {
				t.Fatalf("ProgressStep(%q) = %d, want %d", tt.status, got, tt.want)
			}
		})
	}
}

func TestProgressStepOrdersLifecycle(t *testing.T) {
	order := []IssueStatus{IssueStatusOpen, IssueStatusAccepted, IssueStatusInProgress, IssueStatusResolved}
	for i := 1; i < len(order); i++ {
		if ProgressStep(order[i-1]) >= ProgressStep(order[i]) {
			t.Fatalf("expected %q to precede %q", order[i-1], order[i])
		}
	}
}

func TestKnownStatus(t *testing.T) {
	for _, status := range []IssueStatus{IssueStatusOpen, IssueStatusAccepted, IssueStatusInProgress, IssueStatusResolved} {
		if !KnownStatus(status) {
			t.Fatalf("expected %q to be known", status)
		}
	}
	if KnownStatus("Closed") {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestTipDecisionMade(t *testing.T) {
	tests := []struct {
		name  string
		issue Issue
		want  bool
	}{
		{"no decision", Issue{}, false},
		{"tipped", Issue{TipAmount: 5}, true},
		{"skipped", Issue{TipSkipped: true}, true},
		{"tipped and skipped", Issue{TipAmount: 3, TipSkipped: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.issue.TipDecisionMade(); got != tt.want {
				t.Fatalf("TipDecisionMade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIssueFromFields(t *testing.T) {
	createdAt := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	issue := IssueFromFields("issue-1", createdAt, map[string]any{
		FieldStatus:        string(IssueStatusInProgress),
		FieldTitle:         "Broken streetlight",
		FieldReporterID:    "uid-1",
		FieldReporterEmail: "a@example.com",
		// JSON decoding yields float64 for numbers.
		FieldTipAmount:  float64(7),
		FieldRating:     float64(4),
		FieldTipSkipped: true,
		FieldAIAnalysis: map[string]any{"category": "lighting", "summary": "pole damage"},
	})

	if issue.ID != "issue-1" || !issue.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected identity fields: %+v", issue)
	}
	if issue.Status != IssueStatusInProgress {
		t.Fatalf("status = %q, want %q", issue.Status, IssueStatusInProgress)
	}
	if issue.TipAmount != 7 || issue.Rating != 4 || !issue.TipSkipped {
		t.Fatalf("numeric decode failed: %+v", issue)
	}
	if issue.AIAnalysis == nil || issue.AIAnalysis.Category != "lighting" {
		t.Fatalf("analysis decode failed: %+v", issue.AIAnalysis)
	}
}

func TestIssueFromFieldsDefaultsStatus(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"missing status", map[string]any{FieldTitle: "x"}},
		{"unknown status", map[string]any{FieldStatus: "Archived"}},
		{"wrong type", map[string]any{FieldStatus: 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := IssueFromFields("id", time.Now(), tt.fields)
			if issue.Status != IssueStatusOpen {
				t.Fatalf("status = %q, want %q", issue.Status, IssueStatusOpen)
			}
		})
	}
}
