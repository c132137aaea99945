package repository

import (
	"context"


	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

// UserRepository defines read access to accounts referenced by tickets.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// ListActiveTechnicianLoads returns every active technician with the
	// number of ASSIGNED, IN_PROGRESS and IN_REVIEW tickets they hold,
	// ordered by load ascending and then by id.
	ListActiveTechnicianLoads(ctx context.Context) ([]domain.TechnicianLoad, error)
}

type userRepository struct {
	db persistence.DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db persistence.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, first_name, last_name, email, role, active, created_at, updated_at
        FROM users WHERE id=$1`

	var user domain.User
	if err := persistence.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListActiveTechnicianLoads(ctx context.Context) ([]domain.TechnicianLoad, error) {
	const query = `
        SELECT u.id, u.first_name, u.last_name, u.email, u.role, u.active, u.created_at, u.updated_at,
               COUNT(t.id) AS active_count
        FROM users u
        LEFT JOIN tickets t
          ON t.technician_id = u.id AND t.status IN ('ASSIGNED','IN_PROGRESS','IN_REVIEW')
        WHERE u.role = 'TECHNICIAN' AND u.active
        GROUP BY u.id
        ORDER BY active_count ASC, u.id::text ASC`

	rows, err := persistence.Conn(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TechnicianLoad
	for rows.Next() {
		var load domain.TechnicianLoad
		if err := rows.Scan(
			&load.Technician.ID,
			&load.Technician.FirstName,
			&load.Technician.LastName,
			&load.Technician.Email,
			&load.Technician.Role,
			&load.Technician.Active,
			&load.Technician.CreatedAt,
			&load.Technician.UpdatedAt,
			&load.ActiveCount,
		); err != nil {
			return nil, err
		}
		result = append(result, load)
	}
	return result, rows.Err()
}
