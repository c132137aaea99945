package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseTime(field, val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid timestamp", map[string]any{"field": field})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:              ticket.ID,
		Code:            ticket.Code,
		Title:           ticket.Title,
		Description:     ticket.Description,
		Category:        ticket.Category,
		Subcategory:     ticket.Subcategory,
		Priority:        ticket.Priority,
		Status:          ticket.Status,
		CreatorID:       ticket.CreatorID,
		TechnicianID:    ticket.TechnicianID,
		Address:         ticket.Address,
		Latitude:        ticket.Latitude,
		Longitude:       ticket.Longitude,
		ContactInfo:     ticket.ContactInfo,
		SLADeadline:     ticket.SLADeadline,
		Solution:        ticket.Solution,
		ResolutionNotes: ticket.ResolutionNotes,
		RejectionReason: ticket.RejectionReason,
		ClosedByID:      ticket.ClosedByID,
		AssignedAt:      ticket.AssignedAt,
		StartedAt:       ticket.StartedAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketViewResponse(view *service.TicketView) dto.TicketResponse {
	resp := ticketResponse(&view.Ticket)
	overdue := view.Overdue
	remaining := view.HoursRemaining
	resp.Overdue = &overdue
	resp.HoursRemaining = &remaining
	resp.NextStates = view.NextStates
	return resp
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		TicketID:   comment.TicketID,
		AuthorID:   comment.AuthorID,
		AuthorName: comment.AuthorName,
		AuthorRole: comment.AuthorRole,
		Content:    comment.Content,
		Internal:   comment.Internal,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}

func attachmentResponse(attachment *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         attachment.ID,
		TicketID:   attachment.TicketID,
		UploaderID: attachment.UploaderID,
		FileName:   attachment.FileName,
		StorageKey: attachment.StorageKey,
		MimeType:   attachment.MimeType,
		SizeBytes:  attachment.SizeBytes,
		CreatedAt:  attachment.CreatedAt,
	}
}

func auditResponses(records []domain.AuditRecord) []dto.AuditEntryResponse {
	resp := make([]dto.AuditEntryResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, dto.AuditEntryResponse{
			ID:          record.ID,
			TicketID:    record.TicketID,
			TicketCode:  record.TicketCode,
			ActorID:     record.ActorID,
			ActorName:   record.ActorName,
			ActorEmail:  record.ActorEmail,
			ActorRole:   record.ActorRole,
			Action:      record.Action,
			Description: record.Description,
			Detail:      record.Detail,
			CreatedAt:   record.CreatedAt,
		})
	}
	return resp
}

func technicianSummary(load domain.TechnicianLoad) dto.TechnicianSummary {
	return dto.TechnicianSummary{
		ID:          load.Technician.ID,
		Name:        load.Technician.DisplayName(),
		Email:       load.Technician.Email,
		ActiveCount: load.ActiveCount,
	}
}
