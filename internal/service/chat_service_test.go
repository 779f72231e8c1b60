package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/store"
)

func newChatFixture(t *testing.T) (*ChatService, string) {
	t.Helper()
	ctx := context.Background()
	client := store.NewMemoryClient()
	dispatcher := events.NewInMemoryDispatcher()
	reconciler := reconcile.New(client, zap.NewNop())
	lifecycle := NewLifecycleService(client, dispatcher)
	chat := NewChatService(client, reconciler, dispatcher)

	issue, err := lifecycle.Report(ctx, citizen, ReportInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	return chat, issue.ID
}

func TestPostAppendsMessage(t *testing.T) {
	ctx := context.Background()
	chat, issueID := newChatFixture(t)

	msg, err := chat.Post(ctx, admin, issueID, "  crew scheduled  ")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if msg.Text != "crew scheduled" {
		t.Fatalf("text not trimmed: %q", msg.Text)
	}
	if msg.SenderRole != domain.RoleAdmin || msg.IssueID != issueID {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.CreatedAt.IsZero() {
		t.Fatal("timestamp must be server-assigned")
	}
}

func TestPostRejections(t *testing.T) {
	ctx := context.Background()
	chat, issueID := newChatFixture(t)

	tests := []struct {
		name     string
		actor    domain.Identity
		issueID  string
		text     string
		wantCode string
	}{
		{"citizen cannot post", citizen, issueID, "hi", "FORBIDDEN"},
		{"blank text", admin, issueID, "   ", "VALIDATION_FAILED"},
		{"missing issue", contractor, "missing", "hi", "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chat.Post(ctx, tt.actor, tt.issueID, tt.text)
			if code := errCode(t, err); code != tt.wantCode {
				t.Fatalf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestChannelDeliversAscendingHistory(t *testing.T) {
	ctx := context.Background()
	chat, issueID := newChatFixture(t)

	texts := []string{"crew assigned", "materials ordered", "work started"}
	roles := []domain.Identity{admin, contractor, contractor}
	for i, text := range texts {
		if _, err := chat.Post(ctx, roles[i], issueID, text); err != nil {
			t.Fatalf("post %q: %v", text, err)
		}
	}

	scope, err := chat.Channel(ctx, issueID)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	defer scope.Close()

	select {
	case snapshot := <-scope.Snapshots():
		msgs := MessagesFromSnapshot(issueID, snapshot)
		if len(msgs) != len(texts) {
			t.Fatalf("got %d messages, want %d", len(msgs), len(texts))
		}
		for i, msg := range msgs {
			if msg.Text != texts[i] {
				t.Fatalf("message %d = %q, want %q (oldest first)", i, msg.Text, texts[i])
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot from channel")
	}
}

func TestTextPreview(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short passes through", "hello", 120, "hello"},
		{"trimmed", "  hello  ", 120, "hello"},
		{"truncated with ellipsis", string(long), 10, "aaaaaaa..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textPreview(tt.in, tt.max); got != tt.want {
				t.Fatalf("textPreview() = %q, want %q", got, tt.want)
			}
		})
	}
}
