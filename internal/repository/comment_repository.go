package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

// CommentRepository persists ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	db persistence.DB
}

// NewCommentRepository constructs repository.
func NewCommentRepository(db persistence.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentSelect = `
        SELECT c.id, c.ticket_id, c.author_id, c.content, c.internal,
               TRIM(u.first_name || ' ' || u.last_name), u.role, c.created_at, c.updated_at
        FROM comments c
        JOIN users u ON u.id = c.author_id`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (id, ticket_id, author_id, content, internal, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := persistence.Conn(ctx, r.db).Exec(ctx, query,
		comment.ID,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
		comment.Internal,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	return err
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	const query = `UPDATE comments SET content=$1, internal=$2, updated_at=$3 WHERE id=$4`
	cmd, err := persistence.Conn(ctx, r.db).Exec(ctx, query,
		comment.Content,
		comment.Internal,
		comment.UpdatedAt,
		comment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := persistence.Conn(ctx, r.db).Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	row := persistence.Conn(ctx, r.db).QueryRow(ctx, commentSelect+` WHERE c.id=$1`, id)
	var comment domain.Comment
	if err := row.Scan(commentScanTargets(&comment)...); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	query := commentSelect + ` WHERE c.ticket_id=$1`
	if !includeInternal {
		query += ` AND NOT c.internal`
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := persistence.Conn(ctx, r.db).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(commentScanTargets(&comment)...); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func commentScanTargets(comment *domain.Comment) []any {
	return []any{
		&comment.ID,
		&comment.TicketID,
		&comment.AuthorID,
		&comment.Content,
		&comment.Internal,
		&comment.AuthorName,
		&comment.AuthorRole,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	}
}
