package service

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/store"
)

var timeNow = time.Now

// IssuesFromSnapshot decodes a full issue-collection snapshot,
// preserving the store's ordering.
func IssuesFromSnapshot(snapshot store.Snapshot) []domain.Issue {
	issues := make([]domain.Issue, 0, len(snapshot.Docs))
	for _, doc := range snapshot.Docs {
		issues = append(issues, domain.IssueFromFields(doc.ID, doc.CreatedAt, doc.Fields))
	}
	return issues
}

// MessagesFromSnapshot decodes a message-channel snapshot, preserving
// the store's ascending ordering.
func MessagesFromSnapshot(issueID string, snapshot store.Snapshot) []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(snapshot.Docs))
	for _, doc := range snapshot.Docs {
		msgs = append(msgs, domain.MessageFromFields(doc.ID, issueID, doc.CreatedAt, doc.Fields))
	}
	return msgs
}
