package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

func TestClientsDoNotSeeInternalComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, domain.TicketPriorityLow)

	_, err := f.commentSvc.Create(ctx, ticket.ID, "Customer line tested OK", true, f.supervisor)
	require.NoError(t, err)
	public, err := f.commentSvc.Create(ctx, ticket.ID, "We are on it", false, f.supervisor)
	require.NoError(t, err)

	clientView, err := f.commentSvc.List(ctx, ticket.ID, f.client)
	require.NoError(t, err)
	require.Len(t, clientView, 1)
	assert.Equal(t, public.ID, clientView[0].ID)

	staffView, err := f.commentSvc.List(ctx, ticket.ID, f.supervisor)
	require.NoError(t, err)
	assert.Len(t, staffView, 2)
}

func TestClientCommentsAreNeverInternal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, domain.TicketPriorityLow)

	comment, err := f.commentSvc.Create(ctx, ticket.ID, "Still down", true, f.client)
	require.NoError(t, err)
	assert.False(t, comment.Internal)
	assert.Contains(t, f.dispatcher.types(), events.EventCommentAdded)

	stranger := f.users.add("client-2", domain.RoleClient, true)
	_, err = f.commentSvc.Create(ctx, ticket.ID, "hello", false, stranger)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.commentSvc.Create(ctx, ticket.ID, "  ", false, f.client)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestCommentEditAndDeleteByAuthorOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, domain.TicketPriorityLow)
	comment, err := f.commentSvc.Create(ctx, ticket.ID, "first", false, f.client)
	require.NoError(t, err)

	text := "edited"
	_, err = f.commentSvc.Update(ctx, comment.ID, CommentPatch{Content: &text}, f.supervisor)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	internal := true
	updated, err := f.commentSvc.Update(ctx, comment.ID, CommentPatch{Content: &text, Internal: &internal}, f.client)
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	assert.False(t, updated.Internal)

	require.NoError(t, f.commentSvc.Delete(ctx, comment.ID, f.admin))
	err = f.commentSvc.Delete(ctx, comment.ID, f.admin)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAttachmentValidationAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, domain.TicketPriorityLow)

	_, err := f.attachmentSvc.Create(ctx, ticket.ID, AttachmentInput{FileName: "a.exe", MimeType: "application/x-msdownload", SizeBytes: 10}, f.client)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.attachmentSvc.Create(ctx, ticket.ID, AttachmentInput{FileName: "big.png", MimeType: "image/png", SizeBytes: 4096}, f.client)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	attachment, err := f.attachmentSvc.Create(ctx, ticket.ID, AttachmentInput{FileName: "../router.PNG", MimeType: "Image/PNG", SizeBytes: 512}, f.client)
	require.NoError(t, err)
	assert.Equal(t, "router.PNG", attachment.FileName)
	assert.Equal(t, "image/png", attachment.MimeType)
	assert.Equal(t, "tickets/"+ticket.ID+"/"+attachment.ID+"/router.PNG", attachment.StorageKey)

	list, err := f.attachmentSvc.List(ctx, ticket.ID, f.supervisor)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = f.attachmentSvc.Delete(ctx, attachment.ID, f.supervisor)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	require.NoError(t, f.attachmentSvc.Delete(ctx, attachment.ID, f.client))
}

func TestAuditStatisticsCountsByAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tech := f.users.add("tech-x", domain.RoleTechnician, true)
	first := f.createTicket(t, domain.TicketPriorityLow)
	f.createTicket(t, domain.TicketPriorityHigh)
	_, err := f.ticketSvc.Assign(ctx, first.ID, tech.ID, "", f.supervisor)
	require.NoError(t, err)

	stats, err := f.audit.Statistics(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByAction[domain.AuditCreated])
	assert.Equal(t, 1, stats.ByAction[domain.AuditAssigned])
	require.Len(t, stats.Recent, 3)
	assert.Equal(t, domain.AuditAssigned, stats.Recent[0].Action)

	from := t0.Add(1)
	to := t0
	_, err = f.audit.Statistics(ctx, domain.AuditFilter{From: &from, To: &to})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
