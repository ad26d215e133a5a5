// internal/infra/database/postgres_state_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"homework_status_bot/internal/domain/pollstate"

	"github.com/lib/pq"
)

// pollStateRowID pins the table to a single row; the bot serves exactly one chat.
const pollStateRowID = 1

const createPollStateTable = `CREATE TABLE IF NOT EXISTS poll_state (
	id              SMALLINT PRIMARY KEY CHECK (id = 1),
	cursor          BIGINT      NOT NULL DEFAULT 0,
	last_diagnostic TEXT        NOT NULL DEFAULT '',
	last_success_at TIMESTAMPTZ NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type PostgresStateRepository struct {
	db *sql.DB
}

func NewPostgresStateRepository(db *sql.DB) *PostgresStateRepository {
	return &PostgresStateRepository{db: db}
}

// EnsureSchema creates the poll_state table if it does not exist yet.
func (r *PostgresStateRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPollStateTable); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "insufficient_privilege" {
			return fmt.Errorf("no privilege to create poll_state table: %w", err)
		}
		return fmt.Errorf("error creating poll_state table: %w", err)
	}
	return nil
}

func (r *PostgresStateRepository) Load(ctx context.Context) (*pollstate.State, error) {
	query := `SELECT cursor, last_diagnostic, last_success_at, updated_at FROM poll_state WHERE id = $1`
	st := pollstate.State{}
	var lastSuccess pq.NullTime
	err := r.db.QueryRowContext(ctx, query, pollStateRowID).Scan(&st.Cursor, &st.LastDiagnostic, &lastSuccess, &st.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, pollstate.ErrStateNotFound
		}
		return nil, fmt.Errorf("error loading poll state: %w", err)
	}
	if lastSuccess.Valid {
		st.LastSuccessAt = lastSuccess.Time
	}
	return &st, nil
}

func (r *PostgresStateRepository) SaveCursor(ctx context.Context, cursor int64, successAt time.Time) error {
	query := `INSERT INTO poll_state (id, cursor, last_success_at, updated_at)
               VALUES ($1, $2, $3, NOW())
               ON CONFLICT (id) DO UPDATE
               SET cursor = EXCLUDED.cursor,
                   last_success_at = COALESCE(EXCLUDED.last_success_at, poll_state.last_success_at),
                   updated_at = NOW()`
	lastSuccess := pq.NullTime{Time: successAt, Valid: !successAt.IsZero()}
	if _, err := r.db.ExecContext(ctx, query, pollStateRowID, cursor, lastSuccess); err != nil {
		return fmt.Errorf("error saving poll cursor: %w", err)
	}
	return nil
}

func (r *PostgresStateRepository) SaveDiagnostic(ctx context.Context, diagnostic string) error {
	query := `INSERT INTO poll_state (id, last_diagnostic, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (id) DO UPDATE
               SET last_diagnostic = EXCLUDED.last_diagnostic, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, pollStateRowID, diagnostic); err != nil {
		return fmt.Errorf("error saving last diagnostic: %w", err)
	}
	return nil
}
