package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

// AuditRepository stores the append-only ticket audit trail.
type AuditRepository interface {
	// Create inserts entry inside a savepoint of the caller's transaction so
	// a failed insert leaves the surrounding work intact.
	Create(ctx context.Context, entry *domain.AuditEntry) error
	// ListByTicket returns entries newest first, ties broken by insertion order.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditRecord, error)
	Stats(ctx context.Context, filter domain.AuditFilter, recent int) (*domain.AuditStats, error)
}

type auditRepository struct {
	db persistence.DB
}

// NewAuditRepository builds repository.
func NewAuditRepository(db persistence.DB) AuditRepository {
	return &auditRepository{db: db}
}

const auditSelect = `
        SELECT a.id, a.ticket_id, a.actor_id, a.action, a.description, a.detail, a.created_at,
               TRIM(u.first_name || ' ' || u.last_name), u.email, u.role, t.code
        FROM audit_entries a
        JOIN users u ON u.id = a.actor_id
        JOIN tickets t ON t.id = a.ticket_id`

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_entries (id, ticket_id, actor_id, action, description, detail, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	return persistence.Savepoint(ctx, func(ctx context.Context) error {
		_, err := persistence.Conn(ctx, r.db).Exec(ctx, query,
			entry.ID,
			entry.TicketID,
			entry.ActorID,
			entry.Action,
			entry.Description,
			entry.Detail,
			entry.CreatedAt,
		)
		return err
	})
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditRecord, error) {
	rows, err := persistence.Conn(ctx, r.db).Query(ctx,
		auditSelect+` WHERE a.ticket_id=$1 ORDER BY a.created_at DESC, a.seq DESC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRecords(rows)
}

func (r *auditRepository) Stats(ctx context.Context, filter domain.AuditFilter, recent int) (*domain.AuditStats, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("a.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("a.created_at <= $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")
	conn := persistence.Conn(ctx, r.db)

	stats := &domain.AuditStats{ByAction: map[domain.AuditAction]int{}}
	rows, err := conn.Query(ctx, `SELECT a.action, COUNT(*) FROM audit_entries a WHERE `+where+` GROUP BY a.action`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			action domain.AuditAction
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByAction[action] = count
		stats.Total += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if recent <= 0 {
		return stats, nil
	}
	recentRows, err := conn.Query(ctx,
		fmt.Sprintf(`%s WHERE %s ORDER BY a.created_at DESC, a.seq DESC LIMIT %d`, auditSelect, where, recent), args...)
	if err != nil {
		return nil, err
	}
	defer recentRows.Close()
	stats.Recent, err = scanAuditRecords(recentRows)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func scanAuditRecords(rows pgx.Rows) ([]domain.AuditRecord, error) {
	var result []domain.AuditRecord
	for rows.Next() {
		var record domain.AuditRecord
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.ActorID,
			&record.Action,
			&record.Description,
			&record.Detail,
			&record.CreatedAt,
			&record.ActorName,
			&record.ActorEmail,
			&record.ActorRole,
			&record.TicketCode,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
