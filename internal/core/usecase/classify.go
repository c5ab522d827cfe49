package usecase

import (
	"strings"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// Keyword groups checked in strict order. The order is a deliberate
// tie-break: a document mentioning both "prescription" and
// "diagnosis" classifies as PRESCRIPTION.
var (
	prescriptionKeywords = []string{"rx", "prescription", "medication", "dosage", "take"}
	labReportKeywords    = []string{"lab", "result", "test", "hemoglobin", "glucose", "creatinine", "value"}
	caseSheetKeywords    = []string{"case sheet", "diagnosis", "chief complaint", "history", "examination"}
)

// ClassifyText decides the document type by keyword search over the
// lowercased text.
func ClassifyText(text string) domain.DocumentType {
	lower := strings.ToLower(text)

	if containsAny(lower, prescriptionKeywords) {
		return domain.DocPrescription
	}
	if containsAny(lower, labReportKeywords) {
		return domain.DocLabReport
	}
	if containsAny(lower, caseSheetKeywords) {
		return domain.DocCaseSheet
	}
	return domain.DocGeneral
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
