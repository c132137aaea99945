package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

var (
	readCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	now           = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestGetForUpdateLocksRowInsideTransaction(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id=$1 FOR UPDATE")).
		WithArgs("t-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewTicketRepository(mock)
	err := persistence.NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := repo.GetForUpdate(ctx, "t-1")
		return err
	})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingTicket(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectExec("UPDATE tickets SET title").WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewTicketRepository(mock).Update(context.Background(), &domain.Ticket{ID: "t-404", UpdatedAt: now})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveTechnicianReportsWhetherTicketMatched(t *testing.T) {
	mock := newMockDB(t)
	move := regexp.QuoteMeta("UPDATE tickets SET technician_id=$3, assigned_at=$4, updated_at=$4")
	mock.ExpectExec(move).WithArgs("t-1", "tech-a", "tech-b", now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(move).WithArgs("t-2", "tech-a", "tech-b", now).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewTicketRepository(mock)
	moved, err := repo.MoveTechnician(context.Background(), "t-1", "tech-a", "tech-b", now)
	require.NoError(t, err)
	assert.True(t, moved)

	// Closed or handed over since it was listed.
	moved, err = repo.MoveTechnician(context.Background(), "t-2", "tech-a", "tech-b", now)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedAuditInsertDoesNotUndoTicketWrite(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectExec("UPDATE tickets SET technician_id").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_entries").WillReturnError(errors.New(`violates foreign key constraint "audit_entries_actor_id_fkey"`))
	mock.ExpectRollback()
	mock.ExpectCommit()

	tickets := NewTicketRepository(mock)
	audits := NewAuditRepository(mock)
	var auditErr error
	err := persistence.NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context) error {
		if _, err := tickets.MoveTechnician(ctx, "t-1", "tech-a", "tech-b", now); err != nil {
			return err
		}
		auditErr = audits.Create(ctx, &domain.AuditEntry{
			ID:        "a-1",
			TicketID:  "t-1",
			ActorID:   "ghost",
			Action:    domain.AuditReassigned,
			CreatedAt: now,
		})
		return nil
	})
	require.NoError(t, err)
	assert.Error(t, auditErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
