package usecase

import (
	"testing"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

func TestClassifyText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.DocumentType
	}{
		{"prescription keyword", "Rx: Amoxicillin 500mg", domain.DocPrescription},
		{"lab keyword", "Lab Report\nHemoglobin 13.5", domain.DocLabReport},
		{"case sheet keyword", "Chief Complaint: fever for 3 days", domain.DocCaseSheet},
		{"no keywords", "Receipt for consultation fee", domain.DocGeneral},
		{"case insensitive", "PRESCRIPTION for patient", domain.DocPrescription},
		{"empty text", "", domain.DocGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyText(tt.text); got != tt.want {
				t.Fatalf("ClassifyText(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

// Prescription keywords outrank lab keywords, which outrank case-sheet
// keywords; a document hitting several groups takes the highest one.
func TestClassifyTextPrecedence(t *testing.T) {
	mixed := "Prescription\nDiagnosis: viral fever\nLab results attached"
	if got := ClassifyText(mixed); got != domain.DocPrescription {
		t.Fatalf("expected PRESCRIPTION to win, got %s", got)
	}

	labAndCase := "Lab Report\nDiagnosis: anemia"
	if got := ClassifyText(labAndCase); got != domain.DocLabReport {
		t.Fatalf("expected LAB_REPORT to outrank CASE_SHEET, got %s", got)
	}
}
