package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// AttachmentService records metadata for files attached to tickets. The
// bytes live in external storage under StorageKey.
type AttachmentService struct {
	attachments repository.AttachmentRepository
	tickets     repository.TicketRepository
	cfg         config.AttachmentConfig
	now         func() time.Time
}

// AttachmentDependencies bundles repositories.
type AttachmentDependencies struct {
	AttachmentRepo repository.AttachmentRepository
	TicketRepo     repository.TicketRepository
	Config         config.AttachmentConfig
	Now            func() time.Time
}

// AttachmentInput defines attachment metadata.
type AttachmentInput struct {
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
}

// NewAttachmentService constructs the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	return &AttachmentService{
		attachments: deps.AttachmentRepo,
		tickets:     deps.TicketRepo,
		cfg:         deps.Config,
		now:         orNow(deps.Now),
	}
}

// List returns attachments of a ticket visible to actor.
func (s *AttachmentService) List(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.Attachment, error) {
	if err := s.requireVisible(ctx, ticketID, actor); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// Create validates and stores attachment metadata.
func (s *AttachmentService) Create(ctx context.Context, ticketID string, input AttachmentInput, actor domain.Actor) (*domain.Attachment, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	if err := s.requireVisible(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := strings.TrimSpace(input.StorageKey)
	if key == "" {
		key = path.Join("tickets", ticketID, id, input.FileName)
	}
	attachment := &domain.Attachment{
		ID:         id,
		TicketID:   ticketID,
		UploaderID: actor.ID,
		FileName:   input.FileName,
		StorageKey: key,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
		CreatedAt:  s.now(),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// Delete removes attachment metadata. Only the uploader or an admin may do so.
func (s *AttachmentService) Delete(ctx context.Context, attachmentID string, actor domain.Actor) error {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return notFoundOr(err, "attachment", attachmentID)
	}
	if attachment.UploaderID != actor.ID && actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only the uploader or an admin can delete an attachment")
	}
	if err := s.attachments.Delete(ctx, attachmentID); err != nil {
		return notFoundOr(err, "attachment", attachmentID)
	}
	return nil
}

func (s *AttachmentService) validate(input *AttachmentInput) error {
	input.FileName = path.Base(strings.TrimSpace(input.FileName))
	if input.FileName == "" || input.FileName == "." || input.FileName == "/" {
		return apperrors.NewValidationError("file_name is required", map[string]any{"field": "file_name"})
	}
	if input.SizeBytes <= 0 {
		return apperrors.NewValidationError("size_bytes must be positive", map[string]any{"field": "size_bytes"})
	}
	if s.cfg.MaxSizeBytes > 0 && input.SizeBytes > s.cfg.MaxSizeBytes {
		return apperrors.NewValidationError(
			fmt.Sprintf("attachment exceeds %d bytes", s.cfg.MaxSizeBytes),
			map[string]any{"field": "size_bytes", "max": s.cfg.MaxSizeBytes})
	}
	input.MimeType = strings.ToLower(strings.TrimSpace(input.MimeType))
	for _, allowed := range s.cfg.AllowedMimeTypes {
		if input.MimeType == allowed {
			return nil
		}
	}
	return apperrors.NewValidationError("mime type not allowed", map[string]any{"field": "mime_type", "value": input.MimeType})
}

func (s *AttachmentService) requireVisible(ctx context.Context, ticketID string, actor domain.Actor) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return notFoundOr(err, "ticket", ticketID)
	}
	if !canView(ticket, actor) {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}
