package usecase

import "github.com/avenmed/clinic-intake/internal/core/domain"

// Presence-based field confidence. Deliberately decoupled from the
// OCR engine's confidence: a clean scan with no matching field still
// scores low for that field.
const absentFieldScore = 0.2

var presentFieldScores = map[string]float64{
	"name":        0.7,
	"age":         0.75,
	"gender":      0.7,
	"phoneNumber": 0.85,
	"email":       0.9,
	"bloodType":   0.8,
	"diagnosis":   0.6,
	"vitals":      0.7,
	"labValues":   0.75,
	"medications": 0.65,
}

// ScoreFields assigns each extracted field a fixed confidence keyed on
// whether anything was found for it.
func ScoreFields(fields domain.DocumentFields) map[string]float64 {
	present := map[string]bool{
		"name":        fields.FirstName != "",
		"age":         fields.Age != "",
		"gender":      fields.Gender != "",
		"phoneNumber": fields.PhoneNumber != "",
		"email":       fields.Email != "",
		"bloodType":   fields.BloodType != "",
		"diagnosis":   fields.Diagnosis != "",
		"vitals":      fields.Vitals != (domain.Vitals{}),
		"labValues":   fields.LabValues != (domain.LabValues{}),
		"medications": len(fields.Medications) > 0,
	}

	scores := make(map[string]float64, len(present))
	for field, found := range present {
		if found {
			scores[field] = presentFieldScores[field]
		} else {
			scores[field] = absentFieldScore
		}
	}
	return scores
}
