package domain

import "time"

// Role enumerates the workflow roles a session can act as.
type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
)

// KnownRole reports whether role is one of the defined workflow roles.
func KnownRole(role Role) bool {
	switch role {
	case RoleCitizen, RoleContractor, RoleAdmin:
		return true
	}
	return false
}

// Field names of a chat message document.
const (
	FieldMessageText       = "text"
	FieldMessageSenderRole = "senderRole"
)

// ChatMessage is one append-only entry in an issue's channel.
// Immutable once created; total order is CreatedAt ascending.
type ChatMessage struct {
	ID         string
	IssueID    string
	Text       string
	SenderRole Role
	CreatedAt  time.Time
}

// SentBy reports whether the message should be attributed to the
// viewer's own side of the channel. Attribution is by role, which
// assumes exactly two logical parties per channel.
func (m ChatMessage) SentBy(viewer Role) bool {
	return m.SenderRole == viewer
}

// MessageFromFields decodes a stored document into a ChatMessage.
func MessageFromFields(id, issueID string, createdAt time.Time, fields map[string]any) ChatMessage {
	return ChatMessage{
		ID:         id,
		IssueID:    issueID,
		Text:       asString(fields[FieldMessageText]),
		SenderRole: Role(asString(fields[FieldMessageSenderRole])),
		CreatedAt:  createdAt,
	}
}
