package ports

import (
	"context"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// ImportJobStore persists import jobs and their summaries.
type ImportJobStore interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	GetByID(ctx context.Context, id string) (*domain.ImportJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error
	SaveSummary(ctx context.Context, id string, summary domain.ImportSummary) error
	GetSummary(ctx context.Context, id string) (*domain.ImportSummary, error)
}

// EntityRepository is the persistence egress for imported records. The
// core never issues raw queries; it only asks for existence by a
// unique field and creates whole records.
type EntityRepository interface {
	// FindIDByField returns the matching record's id, or "" when no
	// record matches. tenantID scopes the lookup when non-empty.
	FindIDByField(ctx context.Context, entity domain.EntityType, field, value, tenantID string) (string, error)
	Create(ctx context.Context, entity domain.EntityType, fields map[string]string, tenantID string) (string, error)
}

// PatientMatcher backs the duplicate detector on the patient-specific
// import path.
type PatientMatcher interface {
	FindPatientByPhone(ctx context.Context, normalizedPhone, tenantID string) (*domain.PatientRef, error)
	FindPatientByNameDOB(ctx context.Context, firstName, lastName string, dob time.Time, tenantID string) (*domain.PatientRef, error)
}

// MessageQueue hands submitted jobs to the worker. Submission is
// fire-and-forget; no ordering is assumed beyond what the queue
// provides.
type MessageQueue interface {
	PublishImportSubmitted(ctx context.Context, jobID string) error
	SubscribeImportSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// RateGateStore enforces the per-tenant submission window. The check
// and the write are one atomic operation: of two concurrent
// submissions for the same key, exactly one reservation succeeds.
// Cardinality is bounded by tenant count, so the in-memory store is
// acceptable; an external keyed store can replace it without touching
// the core.
type RateGateStore interface {
	// Reserve claims the window for key at time now. When the previous
	// reservation is still inside interval it reports the remaining
	// wait and ok=false, leaving the window untouched.
	Reserve(ctx context.Context, key string, now time.Time, interval time.Duration) (retryAfter time.Duration, ok bool, err error)
	// Rollback releases a reservation whose submission was later
	// rejected, so a failed upload does not consume the window. It is a
	// no-op if the key has been re-reserved since.
	Rollback(ctx context.Context, key string, reservedAt time.Time) error
}

// SpreadsheetParser decodes an uploaded CSV or XLSX payload into a
// header row plus data rows.
type SpreadsheetParser interface {
	Parse(fileName string, data []byte) (*domain.Sheet, error)
}

// ImagePreprocessor normalizes a scanned image for OCR. It never
// fails: undecodable input comes back unchanged.
type ImagePreprocessor interface {
	Normalize(data []byte) []byte
}

// ImageRecognizer is the OCR engine boundary. Probe is bounded by the
// engine-start timeout, Recognize by the recognition timeout; both via
// the caller's context. Confidence is on the engine's 0-100 scale.
type ImageRecognizer interface {
	Probe(ctx context.Context) error
	Recognize(ctx context.Context, image []byte) (domain.Recognition, error)
}
