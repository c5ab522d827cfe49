package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avenmed/clinic-intake/internal/core/domain"
	"github.com/avenmed/clinic-intake/internal/core/ports"
)

// SubmitLimits are the submission-time bounds. All of them are
// environment-overridable; see config.Load.
type SubmitLimits struct {
	MaxFileSize       int64
	MaxRows           int
	RateLimitInterval time.Duration
}

type SubmitImportUseCase struct {
	jobs   ports.ImportJobStore
	queue  ports.MessageQueue
	gate   ports.RateGateStore
	parser ports.SpreadsheetParser
	limits SubmitLimits
	now    func() time.Time
}

func NewSubmitImportUseCase(
	jobs ports.ImportJobStore,
	queue ports.MessageQueue,
	gate ports.RateGateStore,
	parser ports.SpreadsheetParser,
	limits SubmitLimits,
) *SubmitImportUseCase {
	return &SubmitImportUseCase{
		jobs:   jobs,
		queue:  queue,
		gate:   gate,
		parser: parser,
		limits: limits,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates an upload and enqueues it for processing. Checks
// run in a fixed order and the first failure wins: rate gate, size,
// parse/empty, row count, entity type. The gate reservation is atomic,
// so two concurrent submissions inside one window cannot both pass;
// any later rejection rolls the reservation back, so a failed
// submission does not consume the tenant's window.
func (uc *SubmitImportUseCase) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.ImportReceipt, error) {
	now := uc.now()
	gateKey := rateGateKey(req.TenantID, req.UserID)

	retryAfter, ok, err := uc.gate.Reserve(ctx, gateKey, now, uc.limits.RateLimitInterval)
	if err != nil {
		return nil, fmt.Errorf("reserve rate gate: %w", err)
	}
	if !ok {
		return nil, &domain.RateLimitError{RetryAfter: retryAfter}
	}
	// Rollback errors are dropped: a stuck reservation only makes the
	// gate more conservative.
	release := func() { _ = uc.gate.Rollback(ctx, gateKey, now) }

	if int64(len(req.Data)) > uc.limits.MaxFileSize {
		release()
		return nil, domain.WrapError(domain.ErrPayloadTooLarge, "submit import",
			fmt.Errorf("file is %d bytes, limit is %d", len(req.Data), uc.limits.MaxFileSize))
	}

	sheet, err := uc.parser.Parse(req.FileName, req.Data)
	if err != nil {
		release()
		return nil, domain.WrapError(domain.ErrEmptyInput, "submit import", err)
	}
	if len(sheet.Rows) == 0 {
		release()
		return nil, domain.WrapError(domain.ErrEmptyInput, "submit import",
			fmt.Errorf("no data rows in %q", req.FileName))
	}
	if len(sheet.Rows) > uc.limits.MaxRows {
		release()
		return nil, domain.WrapError(domain.ErrTooManyRows, "submit import",
			fmt.Errorf("%d rows exceed limit of %d", len(sheet.Rows), uc.limits.MaxRows))
	}

	entityType := domain.EntityType(req.EntityType)
	if !entityType.Valid() {
		release()
		return nil, domain.WrapError(domain.ErrInvalidEntityType, "submit import",
			fmt.Errorf("unknown entity type %q", req.EntityType))
	}

	job := &domain.ImportJob{
		ID:         uuid.NewString(),
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		EntityType: entityType,
		FileName:   req.FileName,
		RawBytes:   req.Data,
		TotalRows:  len(sheet.Rows),
		Status:     domain.JobQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		release()
		return nil, fmt.Errorf("persist import job: %w", err)
	}
	if err := uc.queue.PublishImportSubmitted(ctx, job.ID); err != nil {
		release()
		return nil, fmt.Errorf("enqueue import job: %w", err)
	}

	return &domain.ImportReceipt{
		JobID:     job.ID,
		Status:    domain.JobQueued,
		TotalRows: job.TotalRows,
	}, nil
}

// Submissions without a tenant are throttled per user instead of
// sharing one global window.
func rateGateKey(tenantID, userID string) string {
	if tenantID != "" {
		return "tenant:" + tenantID
	}
	return "user:" + userID
}
