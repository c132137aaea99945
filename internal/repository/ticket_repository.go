package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

// TicketFilter captures listing parameters. Scope fields (CreatorID,
// TechnicianID) are set by the service from the caller's role.
type TicketFilter struct {
	CreatorID    *string
	TechnicianID *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Categories   []domain.TicketCategory
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate locks the ticket row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	// ListActiveByTechnician orders by descending priority; limit <= 0 returns all.
	ListActiveByTechnician(ctx context.Context, technicianID string, limit int) ([]domain.Ticket, error)
	// ReassignActive moves every active ticket of fromID to toID in one
	// statement and returns the moved ticket ids.
	ReassignActive(ctx context.Context, fromID, toID string, now time.Time) ([]string, error)
	// MoveTechnician hands one active ticket held by fromID to toID. Only
	// the assignment columns are written; false means the ticket no longer
	// matched.
	MoveTechnician(ctx context.Context, ticketID, fromID, toID string, now time.Time) (bool, error)
	Stats(ctx context.Context, filter TicketFilter, now time.Time) (*domain.TicketStats, error)
}

type ticketRepository struct {
	db persistence.DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db persistence.DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, code, title, description, category, subcategory, priority, status,
               creator_id, technician_id, address, latitude, longitude, contact_info, sla_deadline,
               solution, resolution_notes, rejection_reason, closed_by_id,
               assigned_at, started_at, resolved_at, closed_at, created_at, updated_at`

const priorityRank = `CASE priority WHEN 'URGENTE' THEN 3 WHEN 'ALTA' THEN 2 WHEN 'MEDIA' THEN 1 ELSE 0 END`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`
	_, err := persistence.Conn(ctx, r.db).Exec(ctx, query,
		ticket.ID,
		ticket.Code,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Subcategory,
		ticket.Priority,
		ticket.Status,
		ticket.CreatorID,
		ticket.TechnicianID,
		ticket.Address,
		ticket.Latitude,
		ticket.Longitude,
		ticket.ContactInfo,
		ticket.SLADeadline,
		ticket.Solution,
		ticket.ResolutionNotes,
		ticket.RejectionReason,
		ticket.ClosedByID,
		ticket.AssignedAt,
		ticket.StartedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, category=$3, subcategory=$4, priority=$5, status=$6,
            technician_id=$7, address=$8, latitude=$9, longitude=$10, contact_info=$11, sla_deadline=$12,
            solution=$13, resolution_notes=$14, rejection_reason=$15, closed_by_id=$16,
            assigned_at=$17, started_at=$18, resolved_at=$19, closed_at=$20, updated_at=$21
        WHERE id=$22`
	cmd, err := persistence.Conn(ctx, r.db).Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Subcategory,
		ticket.Priority,
		ticket.Status,
		ticket.TechnicianID,
		ticket.Address,
		ticket.Latitude,
		ticket.Longitude,
		ticket.ContactInfo,
		ticket.SLADeadline,
		ticket.Solution,
		ticket.ResolutionNotes,
		ticket.RejectionReason,
		ticket.ClosedByID,
		ticket.AssignedAt,
		ticket.StartedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(persistence.Conn(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return scanTicket(persistence.Conn(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	where, args := buildTicketWhere(filter)
	conn := persistence.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) ListActiveByTechnician(ctx context.Context, technicianID string, limit int) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE technician_id=$1 AND status IN ('ASSIGNED','IN_PROGRESS','IN_REVIEW')
        ORDER BY %s DESC, created_at ASC`, ticketColumns, priorityRank)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := persistence.Conn(ctx, r.db).Query(ctx, query, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ReassignActive(ctx context.Context, fromID, toID string, now time.Time) ([]string, error) {
	const query = `
        UPDATE tickets SET technician_id=$2, assigned_at=$3, updated_at=$3
        WHERE technician_id=$1 AND status IN ('ASSIGNED','IN_PROGRESS','IN_REVIEW')
        RETURNING id`
	rows, err := persistence.Conn(ctx, r.db).Query(ctx, query, fromID, toID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ticketRepository) MoveTechnician(ctx context.Context, ticketID, fromID, toID string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET technician_id=$3, assigned_at=$4, updated_at=$4
        WHERE id=$1 AND technician_id=$2 AND status IN ('ASSIGNED','IN_PROGRESS','IN_REVIEW')`
	tag, err := persistence.Conn(ctx, r.db).Exec(ctx, query, ticketID, fromID, toID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ticketRepository) Stats(ctx context.Context, filter TicketFilter, now time.Time) (*domain.TicketStats, error) {
	where, args := buildTicketWhere(filter)
	conn := persistence.Conn(ctx, r.db)
	stats := &domain.TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}

	rows, err := conn.Query(ctx, `SELECT status, priority, COUNT(*) FROM tickets WHERE `+where+` GROUP BY status, priority`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status   domain.TicketStatus
			priority domain.TicketPriority
			count    int
		)
		if err := rows.Scan(&status, &priority, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	overdueArgs := append(append([]any{}, args...), now)
	overdueQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s AND status NOT IN ('CLOSED','REJECTED') AND sla_deadline < $%d`,
		where, len(overdueArgs))
	if err := conn.QueryRow(ctx, overdueQuery, overdueArgs...).Scan(&stats.Overdue); err != nil {
		return nil, err
	}
	return stats, nil
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(code) LIKE %s OR LOWER(title) LIKE %s OR LOWER(description) LIKE %s)",
			placeholder, placeholder, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(ticketScanTargets(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketScanTargets(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func ticketScanTargets(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.Code,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Subcategory,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.TechnicianID,
		&ticket.Address,
		&ticket.Latitude,
		&ticket.Longitude,
		&ticket.ContactInfo,
		&ticket.SLADeadline,
		&ticket.Solution,
		&ticket.ResolutionNotes,
		&ticket.RejectionReason,
		&ticket.ClosedByID,
		&ticket.AssignedAt,
		&ticket.StartedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
}
