package events

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueReported      EventType = "issue_reported"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueDeleted       EventType = "issue_deleted"
	EventTipRecorded        EventType = "tip_recorded"
	EventTipSkipped         EventType = "tip_skipped"
	EventReviewSubmitted    EventType = "review_submitted"
	EventMessagePosted      EventType = "message_posted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UID  string      `json:"uid,omitempty"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueReportedPayload payload.
type IssueReportedPayload struct {
	Title      string             `json:"title"`
	Category   string             `json:"category,omitempty"`
	ReporterID string             `json:"reporter_id"`
	Status     domain.IssueStatus `json:"status"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus      domain.IssueStatus `json:"old_status"`
	NewStatus      domain.IssueStatus `json:"new_status"`
	ContractorName string             `json:"contractor_name,omitempty"`
}

// TipRecordedPayload payload.
type TipRecordedPayload struct {
	Amount int64 `json:"amount"`
}

// ReviewSubmittedPayload payload.
type ReviewSubmittedPayload struct {
	Rating int `json:"rating"`
}

// MessagePostedPayload payload.
type MessagePostedPayload struct {
	MessageID   string      `json:"message_id"`
	SenderRole  domain.Role `json:"sender_role"`
	TextPreview string      `json:"text_preview"`
}
