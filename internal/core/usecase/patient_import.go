package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avenmed/clinic-intake/internal/core/domain"
	"github.com/avenmed/clinic-intake/internal/core/ports"
)

// PatientImportUseCase is the richer, patient-specific import path: it
// accepts arbitrary spreadsheet column names, resolves them through
// the alias table, and runs duplicate detection before each create.
type PatientImportUseCase struct {
	entities ports.EntityRepository
	matcher  ports.PatientMatcher
	aliases  []AliasGroup
	logger   *slog.Logger
}

func NewPatientImportUseCase(
	entities ports.EntityRepository,
	matcher ports.PatientMatcher,
	aliases []AliasGroup,
	logger *slog.Logger,
) *PatientImportUseCase {
	if len(aliases) == 0 {
		aliases = defaultAliasTable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PatientImportUseCase{
		entities: entities,
		matcher:  matcher,
		aliases:  aliases,
		logger:   logger,
	}
}

// ImportPatientRows maps headers, then walks rows one at a time. Each
// row's failure is caught individually and appended to the result
// with its spreadsheet row number; the loop always continues.
func (uc *PatientImportUseCase) ImportPatientRows(ctx context.Context, tenantID string, sheet *domain.Sheet) (*domain.PatientImportResult, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyInput, "patient import", fmt.Errorf("no data rows"))
	}

	columnMap := SuggestColumnMap(sheet.Headers, uc.aliases)
	result := &domain.PatientImportResult{
		TotalRows: len(sheet.Rows),
		Rows:      []domain.ImportRowResult{},
		ColumnMap: columnMap,
	}

	for i := range sheet.Rows {
		rowNum := sheet.RowNumber(i)
		fields := uc.mapRow(sheet, i, columnMap)

		outcome, err := uc.importOne(ctx, tenantID, fields)
		res := domain.ImportRowResult{
			RowNumber: rowNum,
			Outcome:   outcome,
			Error:     errMessage(err),
			RawValue:  fields,
		}

		switch outcome {
		case domain.RowSuccess:
			result.CreatedCount++
			res.RawValue = nil
		case domain.RowDuplicate:
			result.DuplicateCount++
		default:
			result.FailedCount++
		}
		result.Rows = append(result.Rows, res)
	}

	uc.logger.Info("patient_import_finished",
		"tenant_id", tenantID,
		"total", result.TotalRows,
		"created", result.CreatedCount,
		"duplicates", result.DuplicateCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

func (uc *PatientImportUseCase) mapRow(sheet *domain.Sheet, i int, columnMap map[string]string) map[string]string {
	fields := map[string]string{}
	row := sheet.Rows[i]
	for col, header := range sheet.Headers {
		field, ok := columnMap[header]
		if !ok || col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		// First mapped column wins when two headers resolve to the
		// same field.
		if _, exists := fields[field]; !exists {
			fields[field] = value
		}
	}
	return fields
}

func (uc *PatientImportUseCase) importOne(ctx context.Context, tenantID string, fields map[string]string) (domain.RowOutcome, error) {
	if strings.TrimSpace(fields["firstName"]) == "" {
		return domain.RowValidationError, fmt.Errorf("missing required field %q", "firstName")
	}

	dup, reason, err := uc.findDuplicate(ctx, tenantID, fields)
	if err != nil {
		return domain.RowPersistenceError, err
	}
	if dup != nil {
		return domain.RowDuplicate, fmt.Errorf("%s (existing patient %s)", reason, dup.ID)
	}

	if phone := fields["phoneNumber"]; phone != "" {
		fields["phoneNumber"] = NormalizePhone(phone)
	}
	if _, err := uc.entities.Create(ctx, domain.EntityPatient, fields, tenantID); err != nil {
		return domain.RowPersistenceError, fmt.Errorf("create patient: %w", err)
	}
	return domain.RowSuccess, nil
}

// findDuplicate applies the detection precedence: normalized phone
// first, then case-insensitive name plus parseable date of birth.
func (uc *PatientImportUseCase) findDuplicate(ctx context.Context, tenantID string, fields map[string]string) (*domain.PatientRef, string, error) {
	if phone := NormalizePhone(fields["phoneNumber"]); phone != "" {
		match, err := uc.matcher.FindPatientByPhone(ctx, phone, tenantID)
		if err != nil {
			return nil, "", fmt.Errorf("phone duplicate check: %w", err)
		}
		if match != nil {
			return match, "phone exists", nil
		}
	}

	dob, ok := ParseFlexibleDate(fields["dateOfBirth"])
	if !ok {
		return nil, "", nil
	}
	firstName := strings.ToLower(strings.TrimSpace(fields["firstName"]))
	lastName := strings.ToLower(strings.TrimSpace(fields["lastName"]))
	if firstName == "" {
		return nil, "", nil
	}
	match, err := uc.matcher.FindPatientByNameDOB(ctx, firstName, lastName, dob, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("name+dob duplicate check: %w", err)
	}
	if match != nil {
		return match, "name+DOB exists", nil
	}
	return nil, "", nil
}
