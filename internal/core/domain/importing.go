package domain

import "time"

type EntityType string

const (
	EntityPatient      EntityType = "PATIENT"
	EntityPrescription EntityType = "PRESCRIPTION"
	EntityDoctor       EntityType = "DOCTOR"
	EntityLabTest      EntityType = "LAB_TEST"
	EntityInventory    EntityType = "INVENTORY"
)

// AllEntityTypes is the closed set of importable record kinds.
var AllEntityTypes = []EntityType{
	EntityPatient,
	EntityPrescription,
	EntityDoctor,
	EntityLabTest,
	EntityInventory,
}

func (t EntityType) Valid() bool {
	for _, known := range AllEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// ImportJob is one bulk-import submission. RawBytes is the original
// upload; processing re-parses it so a different worker can pick the
// job up without sharing submission-time state.
type ImportJob struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id,omitempty"`
	UserID       string     `json:"user_id"`
	EntityType   EntityType `json:"entity_type"`
	FileName     string     `json:"file_name"`
	RawBytes     []byte     `json:"-"`
	TotalRows    int        `json:"total_rows"`
	Status       JobStatus  `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type RowOutcome string

const (
	RowSuccess          RowOutcome = "SUCCESS"
	RowDuplicate        RowOutcome = "DUPLICATE"
	RowValidationError  RowOutcome = "VALIDATION_ERROR"
	RowPersistenceError RowOutcome = "PERSISTENCE_ERROR"
)

// ImportRowResult is one row's outcome. RowNumber is 1-indexed and
// counts the header row, so the first data row reports as row 2 --
// callers use it to point users back at their spreadsheet.
type ImportRowResult struct {
	RowNumber int               `json:"row_number"`
	Outcome   RowOutcome        `json:"outcome"`
	Error     string            `json:"error,omitempty"`
	RawValue  map[string]string `json:"raw_value,omitempty"`
}

// ImportSummary aggregates one processed job. Errors holds every
// non-success row result, in row order.
type ImportSummary struct {
	JobID          string            `json:"job_id"`
	TotalRows      int               `json:"total_rows"`
	SuccessCount   int               `json:"success_count"`
	DuplicateCount int               `json:"duplicate_count"`
	FailedCount    int               `json:"failed_count"`
	Errors         []ImportRowResult `json:"errors"`
	CompletedAt    time.Time         `json:"completed_at"`
}

// ImportReceipt is returned synchronously from a submission.
type ImportReceipt struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	TotalRows int       `json:"total_rows"`
}

// SubmitRequest is the upload ingress contract: the transport
// (multipart, base64) is the caller's concern, validation is ours.
type SubmitRequest struct {
	TenantID   string
	UserID     string
	EntityType string
	FileName   string
	Data       []byte
}

// Sheet is a parsed spreadsheet: one header row plus data rows. Rows
// are padded or truncated to the header width by the parser. Lines
// holds each data row's physical 1-based spreadsheet line, so skipped
// blank lines do not shift the numbers reported back to the uploader.
type Sheet struct {
	Headers []string
	Rows    [][]string
	Lines   []int
}

// RowNumber reports the physical spreadsheet line of data row i,
// falling back to the contiguous numbering when the source carried no
// line information.
func (s *Sheet) RowNumber(i int) int {
	if i < len(s.Lines) {
		return s.Lines[i]
	}
	return RowNumber(i)
}

// RowMap binds the i-th data row (0-indexed) to its header names.
func (s *Sheet) RowMap(i int) map[string]string {
	m := make(map[string]string, len(s.Headers))
	for col, h := range s.Headers {
		if col < len(s.Rows[i]) {
			m[h] = s.Rows[i][col]
		} else {
			m[h] = ""
		}
	}
	return m
}

// RowNumber converts a 0-indexed data row to its spreadsheet row
// number (1-indexed, header counted).
func RowNumber(i int) int { return i + 2 }

// PatientRef is the slice of a patient record the duplicate detector
// needs.
type PatientRef struct {
	ID          string
	FirstName   string
	LastName    string
	PhoneNumber string
	DateOfBirth *time.Time
}

// PatientImportResult is the outcome of the flexible-header patient
// import path.
type PatientImportResult struct {
	TotalRows      int               `json:"total_rows"`
	CreatedCount   int               `json:"created_count"`
	DuplicateCount int               `json:"duplicate_count"`
	FailedCount    int               `json:"failed_count"`
	Rows           []ImportRowResult `json:"rows"`
	ColumnMap      map[string]string `json:"column_map"`
}
