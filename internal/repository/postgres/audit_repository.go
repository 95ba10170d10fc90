package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

const auditSchema = `
	CREATE TABLE IF NOT EXISTS r2_audit_log (
		id          UUID PRIMARY KEY,
		request_id  TEXT NOT NULL DEFAULT '',
		account_id  TEXT NOT NULL,
		operation   TEXT NOT NULL,
		bucket      TEXT NOT NULL DEFAULT '',
		object_key  TEXT NOT NULL DEFAULT '',
		outcome     TEXT NOT NULL,
		error_kind  TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS r2_audit_log_created_at_idx ON r2_audit_log (created_at DESC);
`

type auditRow struct {
	ID         string    `db:"id"`
	RequestID  string    `db:"request_id"`
	AccountID  string    `db:"account_id"`
	Operation  string    `db:"operation"`
	Bucket     string    `db:"bucket"`
	ObjectKey  string    `db:"object_key"`
	Outcome    string    `db:"outcome"`
	ErrorKind  string    `db:"error_kind"`
	Message    string    `db:"message"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

type auditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db}
}

// EnsureSchema creates the audit table when missing.
func (r *auditRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Record stores entry, assigning an id and timestamp when absent.
func (r *auditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	row := toRow(entry)
	entry.ID, entry.CreatedAt = row.ID, row.CreatedAt

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO r2_audit_log (
				id, request_id, account_id, operation, bucket, object_key,
				outcome, error_kind, message, duration_ms, created_at
			) VALUES (
				:id, :request_id, :account_id, :operation, :bucket, :object_key,
				:outcome, :error_kind, :message, :duration_ms, :created_at
			)
		`
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
		return nil
	})
}

// Recent returns the newest entries first.
func (r *auditRepository) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	limit = clampLimit(limit)

	var rows []auditRow
	query := `
		SELECT id, request_id, account_id, operation, bucket, object_key,
			outcome, error_kind, message, duration_ms, created_at
		FROM r2_audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		if err == sql.ErrNoRows {
			return []*domain.AuditEntry{}, nil
		}
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	entries := make([]*domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > maxRecentLimit {
		return maxRecentLimit
	}
	return limit
}

func toRow(e *domain.AuditEntry) auditRow {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return auditRow{
		ID:         id,
		RequestID:  e.RequestID,
		AccountID:  e.AccountID,
		Operation:  e.Operation,
		Bucket:     e.Bucket,
		ObjectKey:  e.Key,
		Outcome:    string(e.Outcome),
		ErrorKind:  e.ErrorKind,
		Message:    e.Message,
		DurationMS: e.DurationMS,
		CreatedAt:  created,
	}
}

func (r auditRow) toDomain() *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:         r.ID,
		RequestID:  r.RequestID,
		AccountID:  r.AccountID,
		Operation:  r.Operation,
		Bucket:     r.Bucket,
		Key:        r.ObjectKey,
		Outcome:    domain.AuditOutcome(r.Outcome),
		ErrorKind:  r.ErrorKind,
		Message:    r.Message,
		DurationMS: r.DurationMS,
		CreatedAt:  r.CreatedAt,
	}
}
