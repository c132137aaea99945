package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const commentPreviewLength = 140

// CommentService manages comments on tickets.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CommentDependencies bundles repositories.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	Dispatcher  events.Dispatcher
	Now         func() time.Time
}

// CommentPatch carries optional comment edits.
type CommentPatch struct {
	Content  *string
	Internal *bool
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments:   deps.CommentRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		now:        orNow(deps.Now),
	}
}

// List returns the ticket's comments newest first. Clients do not see
// internal comments.
func (s *CommentService) List(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.Comment, error) {
	if _, err := s.visibleTicket(ctx, ticketID, actor); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID, actor.Role != domain.RoleClient)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// Create adds a comment. Comments written by clients are never internal.
func (s *CommentService) Create(ctx context.Context, ticketID, content string, internal bool, actor domain.Actor) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}
	ticket, err := s.visibleTicket(ctx, ticketID, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleClient {
		internal = false
	}

	now := s.now()
	comment := &domain.Comment{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Content:    content,
		Internal:   internal,
		AuthorRole: actor.Role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	buf := &eventBuffer{dispatcher: s.dispatcher, now: s.now}
	buf.add(events.Event{
		Type:       events.EventCommentAdded,
		TicketID:   ticket.ID,
		TicketCode: ticket.Code,
		ActorID:    actor.ID,
		Payload: events.CommentAddedPayload{
			CommentID:    comment.ID,
			AuthorID:     actor.ID,
			Internal:     comment.Internal,
			CreatorID:    ticket.CreatorID,
			TechnicianID: ticket.TechnicianID,
			BodyPreview:  preview(content),
		},
	})
	buf.flush(ctx)
	return comment, nil
}

// Update edits a comment. Only its author or an admin may do so.
func (s *CommentService) Update(ctx context.Context, commentID string, patch CommentPatch, actor domain.Actor) (*domain.Comment, error) {
	comment, err := s.ownedComment(ctx, commentID, actor)
	if err != nil {
		return nil, err
	}
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
		}
		comment.Content = content
	}
	if patch.Internal != nil && actor.Role != domain.RoleClient {
		comment.Internal = *patch.Internal
	}
	comment.UpdatedAt = s.now()
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, notFoundOr(err, "comment", commentID)
	}
	return comment, nil
}

// Delete removes a comment. Only its author or an admin may do so.
func (s *CommentService) Delete(ctx context.Context, commentID string, actor domain.Actor) error {
	if _, err := s.ownedComment(ctx, commentID, actor); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return notFoundOr(err, "comment", commentID)
	}
	return nil
}

func (s *CommentService) ownedComment(ctx context.Context, commentID string, actor domain.Actor) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment", commentID)
	}
	if comment.AuthorID != actor.ID && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only the author or an admin can modify a comment")
	}
	return comment, nil
}

func (s *CommentService) visibleTicket(ctx context.Context, ticketID string, actor domain.Actor) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if !canView(ticket, actor) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= commentPreviewLength {
		return content
	}
	return string(runes[:commentPreviewLength]) + "..."
}
