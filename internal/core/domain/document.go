package domain

type DocumentType string

const (
	DocPrescription DocumentType = "PRESCRIPTION"
	DocCaseSheet    DocumentType = "CASE_SHEET"
	DocLabReport    DocumentType = "LAB_REPORT"
	DocGeneral      DocumentType = "GENERAL"
)

// Confidence bounds for extracted documents. The ceiling keeps the
// pipeline from ever claiming near-certainty; the floor distinguishes
// "attempted but unreliable" from "not attempted".
const (
	MinConfidence = 0.1
	MaxConfidence = 0.95
)

func ClampConfidence(c float64) float64 {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

type Vitals struct {
	BloodPressure string `json:"blood_pressure,omitempty"`
	Temperature   string `json:"temperature,omitempty"`
	Pulse         string `json:"pulse,omitempty"`
}

type LabValues struct {
	Hemoglobin string `json:"hemoglobin,omitempty"`
	Glucose    string `json:"glucose,omitempty"`
	Creatinine string `json:"creatinine,omitempty"`
}

// DocumentFields is the flat set of medical fields mined from OCR
// text. Each field is extracted independently; absent fields stay
// empty rather than erroring.
type DocumentFields struct {
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Age         string    `json:"age"`
	Gender      string    `json:"gender"`
	PhoneNumber string    `json:"phone_number"`
	Email       string    `json:"email"`
	BloodType   string    `json:"blood_type"`
	Diagnosis   string    `json:"diagnosis"`
	Vitals      Vitals    `json:"vitals"`
	LabValues   LabValues `json:"lab_values"`
	Medications []string  `json:"medications"`
}

// ExtractedDocument is the OCR pipeline's result object. The pipeline
// never returns an error: any failure yields a degraded document
// instead.
type ExtractedDocument struct {
	RawText         string             `json:"raw_text"`
	Confidence      float64            `json:"confidence"`
	DocumentType    DocumentType       `json:"document_type"`
	Fields          DocumentFields     `json:"fields"`
	FieldConfidence map[string]float64 `json:"field_confidence"`
}

// DegradedDocument is the terminal fallback for any OCR failure:
// empty text, floor confidence, GENERAL type.
func DegradedDocument() ExtractedDocument {
	return ExtractedDocument{
		Confidence:      MinConfidence,
		DocumentType:    DocGeneral,
		Fields:          DocumentFields{Medications: []string{}},
		FieldConfidence: map[string]float64{},
	}
}

// Recognition is the raw OCR engine output. Confidence is on the
// engine's native 0-100 scale.
type Recognition struct {
	Text       string
	Confidence float64
}
