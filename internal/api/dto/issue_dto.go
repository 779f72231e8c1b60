package dto

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// ReportIssueRequest payload.
type ReportIssueRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	LocationText string             `json:"location_text"`
	ImageURL     string             `json:"image_url"`
	AIAnalysis   *AIAnalysisPayload `json:"ai_analysis,omitempty"`
}

// AIAnalysisPayload is the advisory categorization produced by the
// external analysis provider.
type AIAnalysisPayload struct {
	Category string `json:"category"`
	Summary  string `json:"summary"`
}

// AdvanceStatusRequest payload.
type AdvanceStatusRequest struct {
	Status         string `json:"status"`
	ContractorName string `json:"contractor_name,omitempty"`
}

// SendTipRequest payload.
type SendTipRequest struct {
	Amount int64 `json:"amount"`
}

// SubmitReviewRequest payload.
type SubmitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// IssueResponse represents one issue.
type IssueResponse struct {
	ID             string             `json:"id"`
	Status         domain.IssueStatus `json:"status"`
	ProgressStep   int                `json:"progress_step"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	LocationText   string             `json:"location_text,omitempty"`
	ImageURL       string             `json:"image_url,omitempty"`
	ContractorName string             `json:"contractor_name,omitempty"`
	TipAmount      int64              `json:"tip_amount"`
	TipSkipped     bool               `json:"tip_skipped"`
	IsReviewed     bool               `json:"is_reviewed"`
	Rating         int                `json:"rating,omitempty"`
	Review         string             `json:"review,omitempty"`
	AIAnalysis     *AIAnalysisPayload `json:"ai_analysis,omitempty"`
	GateState      string             `json:"gate_state"`
	CreatedAt      time.Time          `json:"created_at"`
}

// StatsResponse carries the per-user counters.
type StatsResponse struct {
	Total      int `json:"total"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}
