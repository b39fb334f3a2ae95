package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so appends can run
// standalone or inside the workflow transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger persists transition events. The package exposes no update or
// delete operation; the table is write-once by construction.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger constructs a Ledger.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Append writes a ledger entry outside any caller transaction, used for
// corrective entries. The timestamp is assigned server side.
func (l *Ledger) Append(ctx context.Context, event TransitionEvent) (TransitionEvent, error) {
	if l == nil {
		return TransitionEvent{}, errors.New("history: ledger not initialised")
	}
	return appendEvent(ctx, l.pool, event)
}

// AppendTx writes a ledger entry inside the caller's transaction. The
// workflow service uses this so status update and ledger entry commit as
// one unit.
func (l *Ledger) AppendTx(ctx context.Context, tx pgx.Tx, event TransitionEvent) (TransitionEvent, error) {
	return appendEvent(ctx, tx, event)
}

// ListForSession returns the session's events oldest first. The order is
// total: ties on the timestamp fall back to the insertion id.
func (l *Ledger) ListForSession(ctx context.Context, sessionID string) ([]TransitionEvent, error) {
	if l == nil {
		return nil, errors.New("history: ledger not initialised")
	}
	rows, err := l.pool.Query(ctx, `SELECT id, session_id, username, current_status, new_status, note, at
FROM status_history WHERE session_id = $1 ORDER BY at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []TransitionEvent
	for rows.Next() {
		var ev TransitionEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Username, &ev.CurrentStatus, &ev.NewStatus, &ev.Note, &ev.At); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func appendEvent(ctx context.Context, db DBTX, event TransitionEvent) (TransitionEvent, error) {
	if event.SessionID == "" {
		return TransitionEvent{}, errors.New("history: session id required")
	}
	if event.Username == "" {
		return TransitionEvent{}, errors.New("history: username required")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	var at time.Time
	err := db.QueryRow(ctx, `INSERT INTO status_history (id, session_id, username, current_status, new_status, note, at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
RETURNING at`,
		event.ID, event.SessionID, event.Username, event.CurrentStatus, event.NewStatus, event.Note, nullableTime(event.At)).Scan(&at)
	if err != nil {
		return TransitionEvent{}, err
	}
	event.At = at
	return event, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
