package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/KhanMaytok/pixl-interview/internal/apperr"
	"github.com/KhanMaytok/pixl-interview/internal/presence"
	"github.com/KhanMaytok/pixl-interview/internal/service"
	"github.com/KhanMaytok/pixl-interview/internal/ws"
)

var validate = validator.New()

type Handlers struct {
	svc  *service.MessageService
	wsrv *ws.Server
	pres *presence.Store
}

func NewHandlers(svc *service.MessageService, wsrv *ws.Server, pres *presence.Store) *Handlers {
	return &Handlers{svc: svc, wsrv: wsrv, pres: pres}
}

type pairReq struct {
	UserID      int64 `json:"userId" validate:"required,gt=0"`
	OtherUserID int64 `json:"otherUserId" validate:"required,gt=0"`
}

type createMessageReq struct {
	UserID      int64  `json:"userId" validate:"required,gt=0"`
	OtherUserID int64  `json:"otherUserId" validate:"required,gt=0"`
	Message     string `json:"message" validate:"required,max=4096"`
}

func (h *Handlers) createMessage(c *fiber.Ctx) error {
	var req createMessageReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.svc.CreateMessage(ctx, req.UserID, req.OtherUserID, req.Message)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to create message"})
	}

	h.wsrv.Broadcast(req.OtherUserID, ws.ChatPayload(m))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": m})
}

func (h *Handlers) fetchMessages(c *fiber.Ctx) error {
	var req pairReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	msgs, err := h.svc.GetChatMessages(ctx, req.UserID, req.OtherUserID)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to retrieve messages"})
	}
	return c.JSON(fiber.Map{"success": true, "data": msgs})
}

// deleteConversation hides all prior history for the calling side only. A
// pair that never talked gets a not-found response, no chat is created.
func (h *Handlers) deleteConversation(c *fiber.Ctx) error {
	var req pairReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	err := h.svc.DeleteConversation(ctx, req.UserID, req.OtherUserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Chat not found"})
	}
	if errors.Is(err, apperr.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to delete chat"})
	}
	return c.JSON(fiber.Map{"success": true, "message": "Chat deleted"})
}

// editMessage acts under the token identity, not a body field: only the
// original sender may edit, and non-owners get the same answer as a missing
// message.
func (h *Handlers) editMessage(c *fiber.Ctx) error {
	msgID, err := strconv.ParseInt(c.Params("msg_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid message id"})
	}
	var body struct {
		Message string `json:"message" validate:"required,max=4096"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	if err := validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	userID := c.Locals("user_id").(int64)

	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.svc.EditMessage(ctx, msgID, userID, body.Message)
	if errors.Is(err, apperr.ErrNotFoundOrForbidden) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "Message not found"})
	}
	if errors.Is(err, apperr.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to edit message"})
	}
	return c.JSON(fiber.Map{"success": true, "data": m})
}

// deleteMessage hides one message from the caller's own view; either
// participant may do this, deliberately unlike edit.
func (h *Handlers) deleteMessage(c *fiber.Ctx) error {
	msgID, err := strconv.ParseInt(c.Params("msg_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid message id"})
	}
	userID := c.Locals("user_id").(int64)

	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.svc.DeleteMessage(ctx, msgID, userID)
	if errors.Is(err, apperr.ErrNotFoundOrForbidden) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "Message not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to delete message"})
	}
	return c.JSON(fiber.Map{"success": true, "data": m})
}

func (h *Handlers) lastMessage(c *fiber.Ctx) error {
	otherID, err := strconv.ParseInt(c.Params("other_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid user id"})
	}
	userID := c.Locals("user_id").(int64)

	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.svc.LastMessage(ctx, userID, otherID)
	if errors.Is(err, apperr.ErrNotFound) {
		return c.JSON(fiber.Map{"success": true, "data": nil})
	}
	if errors.Is(err, apperr.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to retrieve message"})
	}
	return c.JSON(fiber.Map{"success": true, "data": m})
}

func (h *Handlers) getPresence(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid user id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.pres.GetPresence(ctx, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to read presence"})
	}
	return c.JSON(fiber.Map{"success": true, "data": st})
}

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 5*time.Second)
}
