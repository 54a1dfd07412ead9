package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"sms-relay/internal/domain"
	"sms-relay/internal/domain/model"
	"sms-relay/internal/domain/ports/repository"
)

var _ repository.SendLogRepository = (*sendLogRepo)(nil)

const sendLogSchema = `
CREATE TABLE IF NOT EXISTS send_log (
    id          TEXT PRIMARY KEY,
    provider    TEXT NOT NULL,
    destination TEXT NOT NULL,
    message_len INTEGER NOT NULL,
    used        TEXT NOT NULL DEFAULT '',
    tried       INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS send_log_created_at_idx ON send_log (created_at DESC);`

// undefined_table
const pgUndefinedTable = "42P01"

type sendLogRepo struct {
	pool *pgxpool.Pool
}

func NewSendLogRepo(pool *pgxpool.Pool) repository.SendLogRepository {
	return &sendLogRepo{pool: pool}
}

// EnsureSchema creates the send_log table when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, sendLogSchema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (r *sendLogRepo) Save(ctx context.Context, tx repository.Tx, rec *model.SendRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO send_log (id, provider, destination, message_len, used, tried, status, error, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	args := []interface{}{
		rec.ID, rec.Provider, rec.Destination, rec.MessageLen, rec.Used, rec.Tried,
		string(rec.Status), rec.Error, rec.Duration.Milliseconds(), rec.CreatedAt,
	}
	tag, err := ex.Exec(ctx, q, args...)
	if isUndefinedTable(err) && tx == nil {
		// first write on a fresh database
		if err = EnsureSchema(ctx, r.pool); err == nil {
			tag, err = ex.Exec(ctx, q, args...)
		}
	}
	if err != nil {
		return fmt.Errorf("postgres: save send record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: send record %s: already stored", rec.ID)
	}
	return nil
}

func (r *sendLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.SendRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, provider, destination, message_len, used, tried, status, error, duration_ms, created_at
FROM send_log
ORDER BY created_at DESC, id DESC
LIMIT $1`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, limit)
	if err != nil {
		if isUndefinedTable(err) {
			return []*model.SendRecord{}, nil
		}
		return nil, fmt.Errorf("postgres: list send records: %w", err)
	}
	defer rows.Close()

	out := make([]*model.SendRecord, 0, limit)
	for rows.Next() {
		var (
			rec    model.SendRecord
			status string
			ms     int64
		)
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Destination, &rec.MessageLen, &rec.Used,
			&rec.Tried, &status, &rec.Error, &ms, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan send record: %w", err)
		}
		rec.Status = model.SendStatus(status)
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *sendLogRepo) Prune(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM send_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune send records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
