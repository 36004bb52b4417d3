package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/middleware"
	"github.com/viraj-gavade/Thriftify-sub000/internal/services"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
)

type ChatHandler struct {
	svc *services.ConversationService
}

func NewChatHandler(svc *services.ConversationService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type createConversationRequest struct {
	RecipientID string `json:"recipientId" validate:"required,mongodb"`
	ListingID   string `json:"listingId" validate:"omitempty,mongodb"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// GET /api/v1/chat/unread-count
func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.svc.UnreadCount(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Unread count fetched", fiber.Map{"count": n})
}

// GET /api/v1/chat/conversations
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	convs, err := h.svc.ListConversations(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Conversations fetched", convs)
}

// POST /api/v1/chat/conversations
func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	conv, created, err := h.svc.FindOrCreate(c.UserContext(), middleware.CurrentUserID(c), req.RecipientID, req.ListingID)
	if err != nil {
		return err
	}
	if created {
		return utils.JSONSuccess(c, fiber.StatusCreated, "Conversation created", conv)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Conversation fetched", conv)
}

// GET /api/v1/chat/conversations/:id/messages?page=&limit=
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	page, err := h.svc.ListMessages(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c),
		c.QueryInt("page", 1), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Messages fetched", page)
}

// POST /api/v1/chat/conversations/:id/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.svc.SendMessage(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c), req.Content)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, "Message sent", msg)
}

// PATCH /api/v1/chat/conversations/:id/read
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	if err := h.svc.MarkAsRead(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c)); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Messages marked as read", nil)
}
