package ports

import (
	"context"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// ImportSubmitter is the inbound contract for bulk-import submission.
type ImportSubmitter interface {
	Submit(ctx context.Context, req domain.SubmitRequest) (*domain.ImportReceipt, error)
}

// ImportProcessor is the inbound contract for asynchronous job
// processing, invoked by the queue worker.
type ImportProcessor interface {
	ProcessByID(ctx context.Context, jobID string) (*domain.ImportSummary, error)
}

// ImportReader is the inbound read model for job state.
type ImportReader interface {
	GetByID(ctx context.Context, id string) (*domain.ImportJob, error)
	GetSummary(ctx context.Context, id string) (*domain.ImportSummary, error)
}

// DocumentExtractor turns a scanned medical document into structured
// fields. It never returns an error: failures degrade to a
// low-confidence empty document.
type DocumentExtractor interface {
	Extract(ctx context.Context, fileName string, image []byte) domain.ExtractedDocument
}

// PatientRowImporter is the flexible-header patient import path.
type PatientRowImporter interface {
	ImportPatientRows(ctx context.Context, tenantID string, sheet *domain.Sheet) (*domain.PatientImportResult, error)
}
