package workflow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldtrack/fieldtrack/internal/history"
	"github.com/fieldtrack/fieldtrack/internal/platform/db"
	"github.com/fieldtrack/fieldtrack/internal/shared"
)

// Repository is the record-store surface the workflow needs. The survey's
// form data belongs to other services; only the status column is owned
// here.
type Repository interface {
	GetStatus(ctx context.Context, sessionID string) (Status, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes the operations that must share one transaction:
// the locked status read, the status write and the ledger append.
type TxRepository interface {
	GetStatusForUpdate(ctx context.Context, sessionID string) (Status, error)
	SetStatus(ctx context.Context, sessionID string, status Status) error
	AppendEvent(ctx context.Context, event history.TransitionEvent) (history.TransitionEvent, error)
}

// PgRepository provides PostgreSQL backed persistence.
type PgRepository struct {
	pool   *pgxpool.Pool
	ledger *history.Ledger
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, ledger *history.Ledger) *PgRepository {
	return &PgRepository{pool: pool, ledger: ledger}
}

// GetStatus returns the survey's current status.
func (r *PgRepository) GetStatus(ctx context.Context, sessionID string) (Status, error) {
	var status Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM site_surveys WHERE session_id = $1`, sessionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrRecordNotFound
		}
		return "", err
	}
	return status, nil
}

// WithTx runs fn inside one transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, ledger: r.ledger})
	})
}

type txRepository struct {
	tx     pgx.Tx
	ledger *history.Ledger
}

// GetStatusForUpdate locks the survey row for the rest of the
// transaction, serialising concurrent transitions on the same session.
func (r *txRepository) GetStatusForUpdate(ctx context.Context, sessionID string) (Status, error) {
	var status Status
	err := r.tx.QueryRow(ctx, `SELECT status FROM site_surveys WHERE session_id = $1 FOR UPDATE`, sessionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrRecordNotFound
		}
		return "", err
	}
	return status, nil
}

// SetStatus writes the new status verbatim.
func (r *txRepository) SetStatus(ctx context.Context, sessionID string, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE site_surveys SET status = $2, updated_at = NOW() WHERE session_id = $1`, sessionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}
	return nil
}

// AppendEvent writes the ledger entry inside the same transaction.
func (r *txRepository) AppendEvent(ctx context.Context, event history.TransitionEvent) (history.TransitionEvent, error) {
	return r.ledger.AppendTx(ctx, r.tx, event)
}
