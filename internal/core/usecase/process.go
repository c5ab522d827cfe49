package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
	"github.com/avenmed/clinic-intake/internal/core/ports"
)

const defaultBatchSize = 1000

type ProcessImportUseCase struct {
	jobs      ports.ImportJobStore
	entities  ports.EntityRepository
	parser    ports.SpreadsheetParser
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewProcessImportUseCase(
	jobs ports.ImportJobStore,
	entities ports.EntityRepository,
	parser ports.SpreadsheetParser,
	batchSize int,
	logger *slog.Logger,
) *ProcessImportUseCase {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessImportUseCase{
		jobs:      jobs,
		entities:  entities,
		parser:    parser,
		batchSize: batchSize,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessByID runs one import job to completion. Rows are processed
// in fixed-size batches, sequentially; one bad row never aborts the
// job. Already-created rows are not undone when a later row fails.
// An error return here is systemic (job missing, unparsable payload,
// store unavailable), not a row failure.
func (uc *ProcessImportUseCase) ProcessByID(ctx context.Context, jobID string) (*domain.ImportSummary, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch import job: %w", err)
	}

	if err := uc.jobs.UpdateStatus(ctx, job.ID, domain.JobProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	// Re-parse the buffered bytes: processing may happen on a
	// different worker than the one that validated the submission.
	sheet, err := uc.parser.Parse(job.FileName, job.RawBytes)
	if err != nil {
		if failErr := uc.jobs.UpdateStatus(ctx, job.ID, domain.JobFailed, err.Error()); failErr != nil {
			return nil, fmt.Errorf("parse job payload: %w; mark failed: %v", err, failErr)
		}
		return nil, fmt.Errorf("parse job payload: %w", err)
	}

	// Entity type was validated at submission, but the stored value
	// could still be unknown (older schema, manual edit). Fail the job
	// instead of dispatching on a missing rule.
	rule, ok := entityRules[job.EntityType]
	if !ok {
		msg := fmt.Sprintf("no import rule for entity type %q", job.EntityType)
		if failErr := uc.jobs.UpdateStatus(ctx, job.ID, domain.JobFailed, msg); failErr != nil {
			return nil, fmt.Errorf("%s; mark failed: %v", msg, failErr)
		}
		return nil, fmt.Errorf("%s", msg)
	}

	summary := uc.processRows(ctx, job, rule, sheet)

	if err := uc.jobs.SaveSummary(ctx, job.ID, *summary); err != nil {
		return nil, fmt.Errorf("save import summary: %w", err)
	}
	if err := uc.jobs.UpdateStatus(ctx, job.ID, domain.JobCompleted, ""); err != nil {
		return nil, fmt.Errorf("set status=completed: %w", err)
	}

	uc.logger.Info("import_job_completed",
		"job_id", job.ID,
		"entity_type", string(job.EntityType),
		"total_rows", summary.TotalRows,
		"success", summary.SuccessCount,
		"duplicates", summary.DuplicateCount,
		"failed", summary.FailedCount,
	)
	return summary, nil
}

func (uc *ProcessImportUseCase) processRows(ctx context.Context, job *domain.ImportJob, rule entityRule, sheet *domain.Sheet) *domain.ImportSummary {
	rc := rowContext{entities: uc.entities, tenantID: job.TenantID}

	summary := &domain.ImportSummary{
		JobID:     job.ID,
		TotalRows: len(sheet.Rows),
		Errors:    []domain.ImportRowResult{},
	}

	for start := 0; start < len(sheet.Rows); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(sheet.Rows) {
			end = len(sheet.Rows)
		}
		for i := start; i < end; i++ {
			uc.processRow(ctx, rule, rc, sheet, i, summary)
		}
	}

	summary.CompletedAt = uc.now()
	return summary
}

func (uc *ProcessImportUseCase) processRow(
	ctx context.Context,
	rule entityRule,
	rc rowContext,
	sheet *domain.Sheet,
	i int,
	summary *domain.ImportSummary,
) {
	row := sheet.RowMap(i)
	rowNum := sheet.RowNumber(i)

	if missing := rule.validateRequired(row); missing != "" {
		summary.FailedCount++
		summary.Errors = append(summary.Errors, domain.ImportRowResult{
			RowNumber: rowNum,
			Outcome:   domain.RowValidationError,
			Error:     fmt.Sprintf("missing required field %q", missing),
			RawValue:  row,
		})
		return
	}

	outcome, err := rule.importRow(ctx, rc, row)
	switch outcome {
	case domain.RowSuccess:
		summary.SuccessCount++
	case domain.RowDuplicate:
		summary.DuplicateCount++
		summary.Errors = append(summary.Errors, domain.ImportRowResult{
			RowNumber: rowNum,
			Outcome:   outcome,
			Error:     errMessage(err),
			RawValue:  row,
		})
	default:
		summary.FailedCount++
		summary.Errors = append(summary.Errors, domain.ImportRowResult{
			RowNumber: rowNum,
			Outcome:   outcome,
			Error:     errMessage(err),
			RawValue:  row,
		})
		uc.logger.Warn("import_row_failed",
			"job_id", summary.JobID,
			"row", rowNum,
			"outcome", string(outcome),
			"error", errMessage(err),
		)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
