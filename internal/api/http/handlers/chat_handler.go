package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/api/dto"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/identity"
	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/service"
	"github.com/spec-kit/issue-service/internal/store"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// ChatHandler manages the per-issue message channel endpoints.
type ChatHandler struct {
	chat       *service.ChatService
	reconciler *reconcile.Reconciler
}

// NewChatHandler constructs handler.
func NewChatHandler(chat *service.ChatService, reconciler *reconcile.Reconciler) *ChatHandler {
	return &ChatHandler{chat: chat, reconciler: reconciler}
}

// Post POST /issues/:id/messages.
func (h *ChatHandler) Post(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.chat.Post(c.UserContext(), actor, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg, actor.Role)})
}

// List GET /issues/:id/messages. Latest full channel snapshot,
// ascending by creation time.
func (h *ChatHandler) List(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	issueID := c.Params("id")
	path := store.SubcollectionPath(reconcile.IssuesPath, issueID, reconcile.MessagesSub)
	snapshot, err := currentSnapshot(c.UserContext(), h.reconciler, store.Query{Path: path})
	if err != nil {
		return err
	}
	msgs := service.MessagesFromSnapshot(issueID, snapshot)
	items := make([]dto.MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, messageResponse(msg, actor.Role))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stream GET /issues/:id/messages/stream. Server-sent events for the
// live channel.
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	actor, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	issueID := c.Params("id")
	path := store.SubcollectionPath(reconcile.IssuesPath, issueID, reconcile.MessagesSub)
	return streamSnapshots(c, h.reconciler, store.Query{Path: path}, func(snapshot store.Snapshot) any {
		msgs := service.MessagesFromSnapshot(issueID, snapshot)
		items := make([]dto.MessageResponse, 0, len(msgs))
		for _, msg := range msgs {
			items = append(items, messageResponse(msg, actor.Role))
		}
		return items
	})
}

func messageResponse(msg domain.ChatMessage, viewer domain.Role) dto.MessageResponse {
	return dto.MessageResponse{
		ID:         msg.ID,
		Text:       msg.Text,
		SenderRole: msg.SenderRole,
		Mine:       msg.SentBy(viewer),
		CreatedAt:  msg.CreatedAt,
	}
}
