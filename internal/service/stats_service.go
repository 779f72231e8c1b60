package service

import "github.com/spec-kit/issue-service/internal/domain"

// ReporterStats are per-user counters derived from the live issue
// snapshot. Purely computed; never persisted or cached.
type ReporterStats struct {
	Total      int
	InProgress int
	Resolved   int
}

// ComputeReporterStats recomputes the viewer's counters from the
// latest snapshot. Ownership falls back to email matching for records
// created before reporter IDs existed.
func ComputeReporterStats(issues []domain.Issue, viewer domain.Identity) ReporterStats {
	var stats ReporterStats
	for _, issue := range issues {
		if !viewer.Owns(issue) {
			continue
		}
		stats.Total++
		switch issue.Status {
		case domain.IssueStatusInProgress:
			stats.InProgress++
		case domain.IssueStatusResolved:
			stats.Resolved++
		}
	}
	return stats
}
