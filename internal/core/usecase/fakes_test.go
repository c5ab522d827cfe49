package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

type statusCall struct {
	status domain.JobStatus
	errMsg string
}

type jobStoreFake struct {
	job          *domain.ImportJob
	created      []*domain.ImportJob
	statusCalls  []statusCall
	savedSummary *domain.ImportSummary

	getErr    error
	createErr error
	statusErr error
	saveErr   error
}

func (f *jobStoreFake) Create(_ context.Context, job *domain.ImportJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, job)
	return nil
}

func (f *jobStoreFake) GetByID(context.Context, string) (*domain.ImportJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyJob := *f.job
	return &copyJob, nil
}

func (f *jobStoreFake) UpdateStatus(_ context.Context, _ string, status domain.JobStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

func (f *jobStoreFake) SaveSummary(_ context.Context, _ string, summary domain.ImportSummary) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedSummary = &summary
	return nil
}

func (f *jobStoreFake) GetSummary(context.Context, string) (*domain.ImportSummary, error) {
	return f.savedSummary, nil
}

type queueFake struct {
	published []string
	pubErr    error
}

func (f *queueFake) PublishImportSubmitted(_ context.Context, jobID string) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, jobID)
	return nil
}

func (f *queueFake) SubscribeImportSubmitted(context.Context, func(context.Context, string) error) error {
	return nil
}

// gateFake mirrors the memory store's reserve-then-rollback contract
// so tests can seed windows and observe rolled-back reservations.
type gateFake struct {
	mu        sync.Mutex
	last      map[string]time.Time
	rollbacks []string

	reserveErr error
}

func newGateFake() *gateFake {
	return &gateFake{last: make(map[string]time.Time)}
}

func (f *gateFake) Reserve(_ context.Context, key string, now time.Time, interval time.Duration) (time.Duration, bool, error) {
	if f.reserveErr != nil {
		return 0, false, f.reserveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if last, ok := f.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < interval {
			return interval - elapsed, false, nil
		}
	}
	f.last[key] = now
	return 0, true, nil
}

func (f *gateFake) Rollback(_ context.Context, key string, reservedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbacks = append(f.rollbacks, key)
	if last, ok := f.last[key]; ok && last.Equal(reservedAt) {
		delete(f.last, key)
	}
	return nil
}

func (f *gateFake) reserved(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.last[key]
	return ok
}

type sheetParserFake struct {
	sheet *domain.Sheet
	err   error
}

func (f *sheetParserFake) Parse(string, []byte) (*domain.Sheet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sheet, nil
}

type createCall struct {
	entity   domain.EntityType
	fields   map[string]string
	tenantID string
}

// entityRepoFake answers lookups from a map keyed by
// "entity/field/value" and records every create.
type entityRepoFake struct {
	existing map[string]string
	created  []createCall

	findErr   error
	createErr error
}

func newEntityRepoFake() *entityRepoFake {
	return &entityRepoFake{existing: make(map[string]string)}
}

func lookupKey(entity domain.EntityType, field, value string) string {
	return fmt.Sprintf("%s/%s/%s", entity, field, value)
}

func (f *entityRepoFake) FindIDByField(_ context.Context, entity domain.EntityType, field, value, _ string) (string, error) {
	if f.findErr != nil {
		return "", f.findErr
	}
	return f.existing[lookupKey(entity, field, value)], nil
}

func (f *entityRepoFake) Create(_ context.Context, entity domain.EntityType, fields map[string]string, tenantID string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, createCall{entity: entity, fields: fields, tenantID: tenantID})
	return fmt.Sprintf("id-%d", len(f.created)), nil
}

type matcherFake struct {
	byPhone   map[string]*domain.PatientRef
	byNameDOB map[string]*domain.PatientRef

	phoneErr error
	nameErr  error
}

func newMatcherFake() *matcherFake {
	return &matcherFake{
		byPhone:   make(map[string]*domain.PatientRef),
		byNameDOB: make(map[string]*domain.PatientRef),
	}
}

func (f *matcherFake) FindPatientByPhone(_ context.Context, normalizedPhone, _ string) (*domain.PatientRef, error) {
	if f.phoneErr != nil {
		return nil, f.phoneErr
	}
	return f.byPhone[normalizedPhone], nil
}

func nameDOBKey(firstName, lastName string, dob time.Time) string {
	return fmt.Sprintf("%s/%s/%s", firstName, lastName, dob.Format("2006-01-02"))
}

func (f *matcherFake) FindPatientByNameDOB(_ context.Context, firstName, lastName string, dob time.Time, _ string) (*domain.PatientRef, error) {
	if f.nameErr != nil {
		return nil, f.nameErr
	}
	return f.byNameDOB[nameDOBKey(firstName, lastName, dob)], nil
}
