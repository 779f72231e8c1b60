package service

import (
	"testing"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/store"
)

func TestComputeReporterStats(t *testing.T) {
	issues := []domain.Issue{
		{ReporterID: "uid-1", Status: domain.IssueStatusOpen},
		{ReporterID: "uid-1", Status: domain.IssueStatusInProgress},
		{ReporterID: "uid-1", Status: domain.IssueStatusResolved},
		{ReporterID: "uid-2", Status: domain.IssueStatusResolved},
		// Legacy record matched by email only.
		{ReporterEmail: "one@example.com", Status: domain.IssueStatusResolved},
	}

	tests := []struct {
		name   string
		viewer domain.Identity
		want   ReporterStats
	}{
		{
			"uid plus email fallback",
			domain.Identity{UID: "uid-1", Email: "one@example.com"},
			ReporterStats{Total: 4, InProgress: 1, Resolved: 2},
		},
		{
			"other reporter",
			domain.Identity{UID: "uid-2"},
			ReporterStats{Total: 1, Resolved: 1},
		},
		{
			"no issues",
			domain.Identity{UID: "uid-3", Email: "three@example.com"},
			ReporterStats{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeReporterStats(issues, tt.viewer); got != tt.want {
				t.Fatalf("ComputeReporterStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeReporterStatsIsPure(t *testing.T) {
	issues := []domain.Issue{{ReporterID: "uid-1", Status: domain.IssueStatusResolved}}
	viewer := domain.Identity{UID: "uid-1"}

	first := ComputeReporterStats(issues, viewer)
	second := ComputeReporterStats(issues, viewer)
	if first != second {
		t.Fatalf("recomputation diverged: %+v vs %+v", first, second)
	}
}

func TestIssuesFromSnapshotPreservesOrder(t *testing.T) {
	snapshot := store.Snapshot{Docs: []store.Document{
		{ID: "b", Fields: map[string]any{domain.FieldTitle: "second"}},
		{ID: "a", Fields: map[string]any{domain.FieldTitle: "first"}},
	}}
	issues := IssuesFromSnapshot(snapshot)
	if len(issues) != 2 || issues[0].ID != "b" || issues[1].ID != "a" {
		t.Fatalf("order not preserved: %+v", issues)
	}
}
