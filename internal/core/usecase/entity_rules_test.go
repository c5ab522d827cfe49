package usecase

import (
	"context"
	"testing"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// Every importable entity type must have a rule; the rules table is
// the single dispatch point.
func TestEveryEntityTypeHasARule(t *testing.T) {
	for _, entity := range domain.AllEntityTypes {
		rule, ok := entityRules[entity]
		if !ok {
			t.Fatalf("entity type %s has no import rule", entity)
		}
		if rule.importRow == nil {
			t.Fatalf("entity type %s has no import function", entity)
		}
		if len(rule.required) == 0 {
			t.Fatalf("entity type %s has no required fields", entity)
		}
	}
}

func TestDoctorImportSetsPlaceholderPassword(t *testing.T) {
	repo := newEntityRepoFake()
	rc := rowContext{entities: repo, tenantID: "clinic-1"}

	outcome, err := importDoctorRow(context.Background(), rc, map[string]string{
		"name":  "Dr. Asha Rao",
		"email": "asha@example.com",
	})
	if err != nil || outcome != domain.RowSuccess {
		t.Fatalf("expected success, got %s / %v", outcome, err)
	}
	if repo.created[0].fields["password"] != placeholderPassword {
		t.Fatalf("expected placeholder password, got %q", repo.created[0].fields["password"])
	}
}

func TestDoctorImportDetectsDuplicateEmail(t *testing.T) {
	repo := newEntityRepoFake()
	repo.existing[lookupKey(domain.EntityDoctor, "email", "asha@example.com")] = "doc-1"
	rc := rowContext{entities: repo}

	outcome, err := importDoctorRow(context.Background(), rc, map[string]string{
		"name":  "Dr. Asha Rao",
		"email": "asha@example.com",
	})
	if outcome != domain.RowDuplicate {
		t.Fatalf("expected duplicate outcome, got %s / %v", outcome, err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("duplicate doctor must not be created")
	}
}

// A prescription row with valid references succeeds without writing
// anything; creation happens through appointments, not bulk import.
func TestPrescriptionImportValidatesWithoutCreating(t *testing.T) {
	repo := newEntityRepoFake()
	repo.existing[lookupKey(domain.EntityPatient, "id", "pat-1")] = "pat-1"
	repo.existing[lookupKey(domain.EntityDoctor, "id", "doc-1")] = "doc-1"
	rc := rowContext{entities: repo}

	outcome, err := importPrescriptionRow(context.Background(), rc, map[string]string{
		"patientId": "pat-1",
		"doctorId":  "doc-1",
	})
	if err != nil || outcome != domain.RowSuccess {
		t.Fatalf("expected success, got %s / %v", outcome, err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("prescription import must never create records, created %d", len(repo.created))
	}
}

func TestPrescriptionImportRejectsMissingReferences(t *testing.T) {
	repo := newEntityRepoFake()
	repo.existing[lookupKey(domain.EntityPatient, "id", "pat-1")] = "pat-1"
	rc := rowContext{entities: repo}

	outcome, err := importPrescriptionRow(context.Background(), rc, map[string]string{
		"patientId": "pat-1",
		"doctorId":  "doc-missing",
	})
	if outcome != domain.RowValidationError {
		t.Fatalf("expected validation error for missing doctor, got %s / %v", outcome, err)
	}

	outcome, _ = importPrescriptionRow(context.Background(), rc, map[string]string{
		"patientId": "pat-missing",
		"doctorId":  "doc-1",
	})
	if outcome != domain.RowValidationError {
		t.Fatalf("expected validation error for missing patient, got %s", outcome)
	}
}

func TestLabTestAndInventoryImportCreateRecords(t *testing.T) {
	repo := newEntityRepoFake()
	rc := rowContext{entities: repo, tenantID: "clinic-1"}

	outcome, err := importLabTestRow(context.Background(), rc, map[string]string{
		"testName": "Complete Blood Count",
		"testCode": "CBC",
	})
	if err != nil || outcome != domain.RowSuccess {
		t.Fatalf("expected lab test success, got %s / %v", outcome, err)
	}

	outcome, err = importInventoryRow(context.Background(), rc, map[string]string{
		"itemName": "Paracetamol 500mg",
		"quantity": "200",
	})
	if err != nil || outcome != domain.RowSuccess {
		t.Fatalf("expected inventory success, got %s / %v", outcome, err)
	}

	if len(repo.created) != 2 {
		t.Fatalf("expected 2 creates, got %d", len(repo.created))
	}
	if repo.created[0].entity != domain.EntityLabTest || repo.created[1].entity != domain.EntityInventory {
		t.Fatalf("unexpected created entities: %s, %s", repo.created[0].entity, repo.created[1].entity)
	}
}

func TestValidateRequiredReportsFirstMissingField(t *testing.T) {
	rule := entityRules[domain.EntityPatient]

	missing := rule.validateRequired(map[string]string{
		"firstName":   "Jane",
		"lastName":    "  ",
		"phoneNumber": "",
	})
	if missing != "lastName" {
		t.Fatalf("expected first missing field lastName, got %q", missing)
	}

	if missing := rule.validateRequired(map[string]string{
		"firstName":   "Jane",
		"lastName":    "Doe",
		"phoneNumber": "9876543210",
	}); missing != "" {
		t.Fatalf("expected no missing field, got %q", missing)
	}
}
