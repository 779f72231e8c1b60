package dto

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// PostMessageRequest payload.
type PostMessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse represents one channel entry.
type MessageResponse struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	SenderRole domain.Role `json:"sender_role"`
	Mine       bool        `json:"mine"`
	CreatedAt  time.Time   `json:"created_at"`
}
