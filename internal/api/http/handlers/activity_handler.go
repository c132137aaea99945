package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
)

// ActivityHandler serves comments and attachment metadata on tickets.
type ActivityHandler struct {
	comments    CommentOperations
	attachments AttachmentOperations
}

// NewActivityHandler constructs handler.
func NewActivityHandler(comments CommentOperations, attachments AttachmentOperations) *ActivityHandler {
	return &ActivityHandler{comments: comments, attachments: attachments}
}

// ListComments GET /tickets/:id/comments.
func (h *ActivityHandler) ListComments(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.List(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateComment POST /tickets/:id/comments.
func (h *ActivityHandler) CreateComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Create(c.UserContext(), c.Params("id"), req.Content, req.Internal, actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// UpdateComment PATCH /comments/:id.
func (h *ActivityHandler) UpdateComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Update(c.UserContext(), c.Params("id"), service.CommentPatch{
		Content:  req.Content,
		Internal: req.Internal,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponse(comment)})
}

// DeleteComment DELETE /comments/:id.
func (h *ActivityHandler) DeleteComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.UserContext(), c.Params("id"), actor); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListAttachments GET /tickets/:id/attachments.
func (h *ActivityHandler) ListAttachments(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	attachments, err := h.attachments.List(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAttachment POST /tickets/:id/attachments.
func (h *ActivityHandler) CreateAttachment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateAttachmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	attachment, err := h.attachments.Create(c.UserContext(), c.Params("id"), service.AttachmentInput{
		FileName:   req.FileName,
		StorageKey: req.StorageKey,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	}, actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// DeleteAttachment DELETE /attachments/:id.
func (h *ActivityHandler) DeleteAttachment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.attachments.Delete(c.UserContext(), c.Params("id"), actor); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
