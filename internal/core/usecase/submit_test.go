package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

func testLimits() SubmitLimits {
	return SubmitLimits{
		MaxFileSize:       1024,
		MaxRows:           100,
		RateLimitInterval: 300 * time.Second,
	}
}

func testSheet(rows int) *domain.Sheet {
	sheet := &domain.Sheet{Headers: []string{"firstName", "lastName", "phoneNumber"}}
	for i := 0; i < rows; i++ {
		sheet.Rows = append(sheet.Rows, []string{"Jane", "Doe", "9876543210"})
	}
	return sheet
}

func newSubmitHarness(sheet *domain.Sheet, parseErr error) (*SubmitImportUseCase, *jobStoreFake, *queueFake, *gateFake) {
	jobs := &jobStoreFake{}
	queue := &queueFake{}
	gate := newGateFake()
	uc := NewSubmitImportUseCase(jobs, queue, gate, &sheetParserFake{sheet: sheet, err: parseErr}, testLimits())
	return uc, jobs, queue, gate
}

func validRequest(data []byte) domain.SubmitRequest {
	return domain.SubmitRequest{
		TenantID:   "clinic-1",
		UserID:     "user-1",
		EntityType: "PATIENT",
		FileName:   "patients.csv",
		Data:       data,
	}
}

func TestSubmitSuccess(t *testing.T) {
	uc, jobs, queue, gate := newSubmitHarness(testSheet(3), nil)

	receipt, err := uc.Submit(context.Background(), validRequest([]byte("payload")))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if receipt.Status != domain.JobQueued {
		t.Fatalf("expected QUEUED receipt, got %s", receipt.Status)
	}
	if receipt.TotalRows != 3 {
		t.Fatalf("expected 3 rows, got %d", receipt.TotalRows)
	}
	if len(jobs.created) != 1 {
		t.Fatalf("expected 1 persisted job, got %d", len(jobs.created))
	}
	if len(queue.published) != 1 || queue.published[0] != receipt.JobID {
		t.Fatalf("expected published job id %s, got %v", receipt.JobID, queue.published)
	}
	if !gate.reserved("tenant:clinic-1") {
		t.Fatalf("expected rate gate reservation for tenant key")
	}
	if len(gate.rollbacks) != 0 {
		t.Fatalf("successful submission must keep its reservation, got rollbacks %v", gate.rollbacks)
	}
}

func TestSubmitRateLimitedWithinWindow(t *testing.T) {
	uc, jobs, _, gate := newSubmitHarness(testSheet(1), nil)
	now := time.Now().UTC()
	uc.now = func() time.Time { return now }
	gate.last["tenant:clinic-1"] = now.Add(-100 * time.Second)

	_, err := uc.Submit(context.Background(), validRequest([]byte("payload")))
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}

	var rateErr *domain.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %T", err)
	}
	if rateErr.RetryAfter != 200*time.Second {
		t.Fatalf("expected 200s retry-after, got %s", rateErr.RetryAfter)
	}
	if len(jobs.created) != 0 {
		t.Fatalf("rate-limited submission must not persist a job")
	}
}

func TestSubmitAllowedAfterWindowElapsed(t *testing.T) {
	uc, _, _, gate := newSubmitHarness(testSheet(1), nil)
	now := time.Now().UTC()
	uc.now = func() time.Time { return now }
	gate.last["tenant:clinic-1"] = now.Add(-301 * time.Second)

	if _, err := uc.Submit(context.Background(), validRequest([]byte("payload"))); err != nil {
		t.Fatalf("expected success after window elapsed, got %v", err)
	}
}

// The rate gate runs before every other check: a second submission
// inside the window is rejected for rate, not size.
func TestSubmitRateGatePrecedesSizeCheck(t *testing.T) {
	uc, _, _, gate := newSubmitHarness(testSheet(1), nil)
	now := time.Now().UTC()
	uc.now = func() time.Time { return now }
	gate.last["tenant:clinic-1"] = now.Add(-10 * time.Second)

	oversized := bytes.Repeat([]byte("x"), 2048)
	_, err := uc.Submit(context.Background(), validRequest(oversized))
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit to win over size, got %v", err)
	}
}

func TestSubmitSizeBoundary(t *testing.T) {
	uc, _, _, _ := newSubmitHarness(testSheet(1), nil)
	exactly := bytes.Repeat([]byte("x"), 1024)
	if _, err := uc.Submit(context.Background(), validRequest(exactly)); err != nil {
		t.Fatalf("payload of exactly the limit must pass, got %v", err)
	}

	uc2, _, _, _ := newSubmitHarness(testSheet(1), nil)
	over := bytes.Repeat([]byte("x"), 1025)
	_, err := uc2.Submit(context.Background(), validRequest(over))
	if !domain.IsKind(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected payload too large, got %v", err)
	}
}

func TestSubmitUnparsablePayload(t *testing.T) {
	uc, _, _, gate := newSubmitHarness(nil, errors.New("not a spreadsheet"))

	_, err := uc.Submit(context.Background(), validRequest([]byte("garbage")))
	if !domain.IsKind(err, domain.ErrEmptyInput) {
		t.Fatalf("expected empty input kind, got %v", err)
	}
	if gate.reserved("tenant:clinic-1") {
		t.Fatalf("rejected submission must not consume the rate window")
	}
}

func TestSubmitHeaderOnlyPayload(t *testing.T) {
	uc, _, _, _ := newSubmitHarness(testSheet(0), nil)

	_, err := uc.Submit(context.Background(), validRequest([]byte("headers only")))
	if !domain.IsKind(err, domain.ErrEmptyInput) {
		t.Fatalf("expected empty input for zero data rows, got %v", err)
	}
}

func TestSubmitRowCountBoundary(t *testing.T) {
	uc, _, _, _ := newSubmitHarness(testSheet(100), nil)
	if _, err := uc.Submit(context.Background(), validRequest([]byte("payload"))); err != nil {
		t.Fatalf("exactly the row limit must pass, got %v", err)
	}

	uc2, _, _, _ := newSubmitHarness(testSheet(101), nil)
	_, err := uc2.Submit(context.Background(), validRequest([]byte("payload")))
	if !domain.IsKind(err, domain.ErrTooManyRows) {
		t.Fatalf("expected too many rows, got %v", err)
	}
}

func TestSubmitInvalidEntityType(t *testing.T) {
	uc, jobs, _, _ := newSubmitHarness(testSheet(1), nil)

	req := validRequest([]byte("payload"))
	req.EntityType = "APPOINTMENT"
	_, err := uc.Submit(context.Background(), req)
	if !domain.IsKind(err, domain.ErrInvalidEntityType) {
		t.Fatalf("expected invalid entity type, got %v", err)
	}
	if len(jobs.created) != 0 {
		t.Fatalf("invalid entity type must not persist a job")
	}
}

// Row count is checked before entity type, so an oversized upload of
// an unknown type reports the row problem first.
func TestSubmitRowCountPrecedesEntityType(t *testing.T) {
	uc, _, _, _ := newSubmitHarness(testSheet(101), nil)

	req := validRequest([]byte("payload"))
	req.EntityType = "APPOINTMENT"
	_, err := uc.Submit(context.Background(), req)
	if !domain.IsKind(err, domain.ErrTooManyRows) {
		t.Fatalf("expected row count to win over entity type, got %v", err)
	}
}

func TestSubmitPublishFailureDoesNotConsumeWindow(t *testing.T) {
	jobs := &jobStoreFake{}
	queue := &queueFake{pubErr: errors.New("nats down")}
	gate := newGateFake()
	uc := NewSubmitImportUseCase(jobs, queue, gate, &sheetParserFake{sheet: testSheet(1)}, testLimits())

	_, err := uc.Submit(context.Background(), validRequest([]byte("payload")))
	if err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	if gate.reserved("tenant:clinic-1") {
		t.Fatalf("failed submission must not consume the rate window")
	}
}

func TestSubmitFallsBackToUserKeyWithoutTenant(t *testing.T) {
	uc, _, _, gate := newSubmitHarness(testSheet(1), nil)

	req := validRequest([]byte("payload"))
	req.TenantID = ""
	if _, err := uc.Submit(context.Background(), req); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !gate.reserved("user:user-1") {
		t.Fatalf("expected per-user gate key reservation")
	}
}

// Of two simultaneous submissions from one tenant, exactly one may
// claim the window; the loser gets the rate-limit error, not a second
// accepted job.
func TestSubmitConcurrentSameTenantAdmitsOne(t *testing.T) {
	jobs := &jobStoreFake{}
	queue := &queueFake{}
	gate := newGateFake()
	uc := NewSubmitImportUseCase(jobs, queue, gate, &sheetParserFake{sheet: testSheet(1)}, testLimits())

	start := make(chan struct{})
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := uc.Submit(context.Background(), validRequest([]byte("payload")))
			errs <- err
		}()
	}
	close(start)

	var accepted, limited int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			accepted++
		case domain.IsKind(err, domain.ErrRateLimited):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || limited != 1 {
		t.Fatalf("want exactly 1 accepted and 1 rate-limited, got %d/%d", accepted, limited)
	}
}

// A rejected submission rolls its reservation back, so an immediate
// corrected retry is not rate limited.
func TestSubmitRejectedThenRetrySucceeds(t *testing.T) {
	jobs := &jobStoreFake{}
	queue := &queueFake{}
	gate := newGateFake()
	uc := NewSubmitImportUseCase(jobs, queue, gate, &sheetParserFake{sheet: testSheet(1)}, testLimits())

	req := validRequest([]byte("payload"))
	req.EntityType = "APPOINTMENT"
	if _, err := uc.Submit(context.Background(), req); !domain.IsKind(err, domain.ErrInvalidEntityType) {
		t.Fatalf("expected invalid entity type, got %v", err)
	}
	if len(gate.rollbacks) != 1 {
		t.Fatalf("expected the reservation to be rolled back, got %v", gate.rollbacks)
	}

	if _, err := uc.Submit(context.Background(), validRequest([]byte("payload"))); err != nil {
		t.Fatalf("corrected retry must pass the gate, got %v", err)
	}
}
