package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGArchive mirrors persisted artifacts into Postgres for querying. It is
// optional: the file sink remains authoritative and archive failures are
// logged by callers, never propagated.
type PGArchive struct {
	pool *pgxpool.Pool
}

func NewPGArchive(ctx context.Context, databaseURL string) (*PGArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PGArchive{pool: pool}, nil
}

func (a *PGArchive) Close() {
	a.pool.Close()
}

// UpsertCallRecord stores the merged call record. Redelivery overwrites,
// matching the file sink's overwrite-on-write behavior.
func (a *PGArchive) UpsertCallRecord(ctx context.Context, callID string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO call_records (call_id, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (call_id) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`,
		callID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert call record: %w", err)
	}
	return nil
}

// InsertGrade stores one grading verdict. Each trigger gets its own row.
func (a *PGArchive) InsertGrade(ctx context.Context, callID, interviewType string, grade any) error {
	data, err := json.Marshal(grade)
	if err != nil {
		return fmt.Errorf("marshal grade: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO grades (id, call_id, interview_type, grade, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), callID, interviewType, data,
	)
	if err != nil {
		return fmt.Errorf("insert grade: %w", err)
	}
	return nil
}
