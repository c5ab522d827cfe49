package usecase

import (
	"regexp"
	"strings"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// Best-effort text mining over OCR output. Each field is extracted
// independently, first match wins; misreads are expected and surface
// through the per-field confidence scores rather than errors.
var (
	rePhone       = regexp.MustCompile(`\b(\d{10})\b`)
	reEmail       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	reAge         = regexp.MustCompile(`(?i)\bage\s*[:\-]?\s*(\d{1,3})\b`)
	reGender      = regexp.MustCompile(`(?i)\b(female|male)\b`)
	reBloodType   = regexp.MustCompile(`\b(AB|A|B|O)\s?([+-])`)
	reBP          = regexp.MustCompile(`\b(\d{2,3})\s*/\s*(\d{2,3})\b`)
	reTemperature = regexp.MustCompile(`(?i)\btemp(?:erature)?\s*[:\-]?\s*(\d{2,3}(?:\.\d+)?)`)
	rePulse       = regexp.MustCompile(`(?i)\b(?:pulse|heart\s*rate|hr)\s*[:\-]?\s*(\d{2,3})\b`)
	reMedication  = regexp.MustCompile(`(?i)^\s*(?:\d+[.)]\s*)?([A-Za-z][A-Za-z0-9 \-]{2,40}?)\s+(\d+(?:\.\d+)?\s*(?:mg|mcg|ml|g|iu|units?|tabs?|tablets?|caps?|capsules?))\b`)
	reDiagnosis   = regexp.MustCompile(`(?i)\bdiagnosis\s*[:\-]?\s*(.+)`)
	reName        = regexp.MustCompile(`^([A-Z][a-z]+)\s+([A-Z][a-z]+)\b`)

	reHemoglobin = regexp.MustCompile(`(?i)\bh(?:a)?emoglobin\b[^0-9]{0,12}(\d+(?:\.\d+)?)`)
	reGlucose    = regexp.MustCompile(`(?i)\bglucose\b[^0-9]{0,12}(\d+(?:\.\d+)?)`)
	reCreatinine = regexp.MustCompile(`(?i)\bcreatinine\b[^0-9]{0,12}(\d+(?:\.\d+)?)`)
)

const maxMedications = 10

// ParseFields mines structured medical fields from raw OCR text,
// line by line. The first line containing a matching token wins for
// each field; later matches are ignored.
func ParseFields(text string) domain.DocumentFields {
	fields := domain.DocumentFields{Medications: []string{}}
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if fields.PhoneNumber == "" {
			if m := rePhone.FindStringSubmatch(line); m != nil {
				fields.PhoneNumber = m[1]
			}
		}
		if fields.Email == "" {
			if m := reEmail.FindString(line); m != "" {
				fields.Email = m
			}
		}
		if fields.Age == "" {
			if m := reAge.FindStringSubmatch(line); m != nil {
				fields.Age = m[1]
			}
		}
		if fields.Gender == "" {
			if m := reGender.FindStringSubmatch(line); m != nil {
				fields.Gender = strings.ToUpper(m[1])
			}
		}
		if fields.BloodType == "" {
			if m := reBloodType.FindStringSubmatch(line); m != nil {
				fields.BloodType = m[1] + m[2]
			}
		}
		if fields.Diagnosis == "" {
			if m := reDiagnosis.FindStringSubmatch(line); m != nil {
				fields.Diagnosis = strings.TrimSpace(m[1])
			}
		}
		if fields.FirstName == "" {
			if m := reName.FindStringSubmatch(line); m != nil && !nameStopword(m[1]) {
				fields.FirstName = m[1]
				fields.LastName = m[2]
			}
		}

		parseVitals(&fields.Vitals, line)
		parseLabValues(&fields.LabValues, line)

		if len(fields.Medications) < maxMedications {
			if m := reMedication.FindStringSubmatch(line); m != nil {
				fields.Medications = append(fields.Medications, strings.TrimSpace(m[1])+" "+normalizeSpace(m[2]))
			}
		}
	}

	return fields
}

func parseVitals(v *domain.Vitals, line string) {
	if v.BloodPressure == "" {
		if m := reBP.FindStringSubmatch(line); m != nil {
			v.BloodPressure = m[1] + "/" + m[2]
		}
	}
	if v.Temperature == "" {
		if m := reTemperature.FindStringSubmatch(line); m != nil {
			v.Temperature = m[1]
		}
	}
	if v.Pulse == "" {
		if m := rePulse.FindStringSubmatch(line); m != nil {
			v.Pulse = m[1]
		}
	}
}

func parseLabValues(lv *domain.LabValues, line string) {
	if lv.Hemoglobin == "" {
		if m := reHemoglobin.FindStringSubmatch(line); m != nil {
			lv.Hemoglobin = m[1]
		}
	}
	if lv.Glucose == "" {
		if m := reGlucose.FindStringSubmatch(line); m != nil {
			lv.Glucose = m[1]
		}
	}
	if lv.Creatinine == "" {
		if m := reCreatinine.FindStringSubmatch(line); m != nil {
			lv.Creatinine = m[1]
		}
	}
}

// Section headings also look like two capitalized words; the stoplist
// keeps the most common ones from being read as a patient name.
var nameStopwords = map[string]bool{
	"Blood": true, "Case": true, "Chief": true, "Date": true,
	"Heart": true, "Lab": true, "Medical": true, "Test": true,
}

func nameStopword(word string) bool { return nameStopwords[word] }

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
