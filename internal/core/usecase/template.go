package usecase

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// templateColumns fixes the header order and example row per entity
// type, used to help callers format correct uploads.
var templateColumns = map[domain.EntityType]struct {
	headers []string
	example []string
}{
	domain.EntityPatient: {
		headers: []string{"firstName", "lastName", "phoneNumber", "email", "dateOfBirth", "gender", "bloodType"},
		example: []string{"John", "Doe", "9876543210", "john.doe@example.com", "1990-04-12", "MALE", "O+"},
	},
	domain.EntityDoctor: {
		headers: []string{"name", "email", "phoneNumber", "specialization", "licenseNumber"},
		example: []string{"Dr. Jane Smith", "jane.smith@example.com", "9876501234", "CARDIOLOGY", "MCI-44187"},
	},
	domain.EntityPrescription: {
		headers: []string{"patientId", "doctorId", "medication", "dosage", "duration"},
		example: []string{"7f0c2a9e-4d3b-4f41-9a57-2d8f0b1c6e21", "c4b1d7aa-08e2-47f6-8f11-5a6d9e3c7b02", "Amoxicillin 500mg", "1-0-1", "5 days"},
	},
	domain.EntityLabTest: {
		headers: []string{"testName", "testCode", "category", "price"},
		example: []string{"Complete Blood Count", "CBC", "HEMATOLOGY", "350"},
	},
	domain.EntityInventory: {
		headers: []string{"itemName", "category", "quantity", "unitPrice", "expiryDate"},
		example: []string{"Paracetamol 500mg", "MEDICINE", "200", "2.50", "2027-03-31"},
	},
}

// CSVTemplate returns a header row plus one example row as plain CSV
// text for the given entity type.
func CSVTemplate(entity domain.EntityType) (string, error) {
	tpl, ok := templateColumns[entity]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidEntityType, "csv template",
			fmt.Errorf("unknown entity type %q", entity))
	}
	var b strings.Builder
	b.WriteString(strings.Join(tpl.headers, ","))
	b.WriteByte('\n')
	b.WriteString(strings.Join(tpl.example, ","))
	b.WriteByte('\n')
	return b.String(), nil
}

// XLSXTemplate returns the same template as a single-sheet workbook
// for callers that prefer spreadsheets over raw CSV.
func XLSXTemplate(entity domain.EntityType) ([]byte, error) {
	tpl, ok := templateColumns[entity]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidEntityType, "xlsx template",
			fmt.Errorf("unknown entity type %q", entity))
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, h := range tpl.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header cell: %w", err)
		}
	}
	for col, v := range tpl.example {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return nil, fmt.Errorf("example cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return nil, fmt.Errorf("set example cell: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
