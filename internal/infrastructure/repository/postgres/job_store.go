package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// ImportJobStore persists import jobs. The raw upload rides along in
// the job row so any worker can re-parse it; the finished summary is
// stored as JSONB next to the job.
type ImportJobStore struct {
	db *sql.DB
}

func NewImportJobStore(db *sql.DB) *ImportJobStore {
	return &ImportJobStore{db: db}
}

func (s *ImportJobStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS import_jobs (
	id TEXT PRIMARY KEY,
	tenant_id TEXT,
	user_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	file_name TEXT NOT NULL,
	raw_bytes BYTEA NOT NULL,
	total_rows INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	summary JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_status ON import_jobs(status);
CREATE INDEX IF NOT EXISTS idx_import_jobs_tenant ON import_jobs(tenant_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	return tx.Commit()
}

func (s *ImportJobStore) Create(ctx context.Context, job *domain.ImportJob) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO import_jobs (
	id, tenant_id, user_id, entity_type, file_name, raw_bytes, total_rows, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		job.ID, nullable(job.TenantID), job.UserID, string(job.EntityType), job.FileName,
		job.RawBytes, job.TotalRows, string(job.Status), job.ErrorMessage, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}

func (s *ImportJobStore) GetByID(ctx context.Context, id string) (*domain.ImportJob, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, tenant_id, user_id, entity_type, file_name, raw_bytes, total_rows, status, error_message, created_at, updated_at
FROM import_jobs
WHERE id = $1
`, id)

	var job domain.ImportJob
	var tenantID, errMessage sql.NullString
	var entityType, status string

	err := row.Scan(
		&job.ID, &tenantID, &job.UserID, &entityType, &job.FileName,
		&job.RawBytes, &job.TotalRows, &status, &errMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get import job", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan import job: %w", err)
	}

	job.TenantID = tenantID.String
	job.ErrorMessage = errMessage.String
	job.EntityType = domain.EntityType(entityType)
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func (s *ImportJobStore) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE import_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "update job status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (s *ImportJobStore) SaveSummary(ctx context.Context, id string, summary domain.ImportSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE import_jobs
SET summary = $2, updated_at = $3
WHERE id = $1
`, id, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "save summary", fmt.Errorf("id %s", id))
	}
	return nil
}

func (s *ImportJobStore) GetSummary(ctx context.Context, id string) (*domain.ImportSummary, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM import_jobs WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get summary", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan summary: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil // job exists, not processed yet
	}
	var summary domain.ImportSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &summary, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
