package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// entityTable fixes, per entity type, the backing table and the
// mapping from import field names to columns. Lookups and inserts go
// through these whitelists only; field names never reach SQL text
// unchecked.
type entityTable struct {
	name    string
	columns map[string]string // import field -> column
	unique  map[string]string // fields allowed in FindIDByField
}

var entityTables = map[domain.EntityType]entityTable{
	domain.EntityPatient: {
		name: "patients",
		columns: map[string]string{
			"firstName":   "first_name",
			"lastName":    "last_name",
			"phoneNumber": "phone_number",
			"email":       "email",
			"dateOfBirth": "date_of_birth",
			"gender":      "gender",
			"bloodType":   "blood_type",
			"address":     "address",
		},
		unique: map[string]string{"id": "id", "email": "email", "phoneNumber": "phone_number"},
	},
	domain.EntityDoctor: {
		name: "doctors",
		columns: map[string]string{
			"name":           "name",
			"email":          "email",
			"phoneNumber":    "phone_number",
			"specialization": "specialization",
			"licenseNumber":  "license_number",
			"password":       "password_hash",
		},
		unique: map[string]string{"id": "id", "email": "email"},
	},
	domain.EntityLabTest: {
		name: "lab_tests",
		columns: map[string]string{
			"testName": "test_name",
			"testCode": "test_code",
			"category": "category",
			"price":    "price",
		},
		unique: map[string]string{"id": "id", "testCode": "test_code"},
	},
	domain.EntityInventory: {
		name: "inventory_items",
		columns: map[string]string{
			"itemName":   "item_name",
			"category":   "category",
			"quantity":   "quantity",
			"unitPrice":  "unit_price",
			"expiryDate": "expiry_date",
		},
		unique: map[string]string{"id": "id", "itemName": "item_name"},
	},
	// Prescriptions are validated but never written by bulk import.
	domain.EntityPrescription: {
		name:   "prescriptions",
		unique: map[string]string{"id": "id"},
	},
}

type EntityRepository struct {
	db *sql.DB
}

func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082802)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS patients (
	id TEXT PRIMARY KEY,
	tenant_id TEXT,
	first_name TEXT NOT NULL,
	last_name TEXT,
	phone_number TEXT,
	email TEXT,
	date_of_birth DATE,
	gender TEXT,
	blood_type TEXT,
	address TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_email ON patients(tenant_id, email) WHERE email IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_patients_phone ON patients(phone_number);
CREATE INDEX IF NOT EXISTS idx_patients_name ON patients(lower(first_name), lower(last_name));

CREATE TABLE IF NOT EXISTS doctors (
	id TEXT PRIMARY KEY,
	tenant_id TEXT,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone_number TEXT,
	specialization TEXT,
	license_number TEXT,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_doctors_email ON doctors(tenant_id, email);

CREATE TABLE IF NOT EXISTS lab_tests (
	id TEXT PRIMARY KEY,
	tenant_id TEXT,
	test_name TEXT NOT NULL,
	test_code TEXT NOT NULL,
	category TEXT,
	price NUMERIC(10,2),
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_lab_tests_code ON lab_tests(tenant_id, test_code);

CREATE TABLE IF NOT EXISTS inventory_items (
	id TEXT PRIMARY KEY,
	tenant_id TEXT,
	item_name TEXT NOT NULL,
	category TEXT,
	quantity INTEGER,
	unit_price NUMERIC(10,2),
	expiry_date DATE,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	return tx.Commit()
}

func (r *EntityRepository) FindIDByField(ctx context.Context, entity domain.EntityType, field, value, tenantID string) (string, error) {
	table, ok := entityTables[entity]
	if !ok {
		return "", fmt.Errorf("no table for entity type %q", entity)
	}
	column, ok := table.unique[field]
	if !ok {
		return "", fmt.Errorf("field %q is not a unique lookup field for %s", field, entity)
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1`, table.name, column)
	args := []any{value}
	if tenantID != "" {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}
	query += ` LIMIT 1`

	var id string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find %s by %s: %w", entity, field, err)
	}
	return id, nil
}

func (r *EntityRepository) Create(ctx context.Context, entity domain.EntityType, fields map[string]string, tenantID string) (string, error) {
	table, ok := entityTables[entity]
	if !ok || len(table.columns) == 0 {
		return "", fmt.Errorf("entity type %q is not creatable", entity)
	}

	id := uuid.NewString()
	columns := []string{"id", "tenant_id", "created_at"}
	placeholders := []string{"$1", "$2", "$3"}
	args := []any{id, nullable(tenantID), time.Now().UTC()}

	// Deterministic column order keeps generated SQL stable for tests
	// and logs.
	for _, field := range sortedFields(table.columns) {
		value, present := fields[field]
		if !present || strings.TrimSpace(value) == "" {
			continue
		}
		column := table.columns[field]
		args = append(args, strings.TrimSpace(value))
		placeholder := fmt.Sprintf("$%d", len(args))
		if castable := columnCast(column); castable != "" {
			placeholder = fmt.Sprintf("NULLIF(%s,'')::%s", placeholder, castable)
		}
		columns = append(columns, column)
		placeholders = append(placeholders, placeholder)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		table.name,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert %s: %w", entity, err)
	}
	return id, nil
}

func (r *EntityRepository) FindPatientByPhone(ctx context.Context, normalizedPhone, tenantID string) (*domain.PatientRef, error) {
	query := `
SELECT id, first_name, COALESCE(last_name,''), COALESCE(phone_number,''), date_of_birth
FROM patients
WHERE regexp_replace(COALESCE(phone_number,''), '\D', '', 'g') = $1`
	args := []any{normalizedPhone}
	if tenantID != "" {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}
	query += ` LIMIT 1`
	return r.scanPatientRef(r.db.QueryRowContext(ctx, query, args...))
}

func (r *EntityRepository) FindPatientByNameDOB(ctx context.Context, firstName, lastName string, dob time.Time, tenantID string) (*domain.PatientRef, error) {
	query := `
SELECT id, first_name, COALESCE(last_name,''), COALESCE(phone_number,''), date_of_birth
FROM patients
WHERE lower(first_name) = $1
  AND ($2 = '' OR lower(COALESCE(last_name,'')) = $2)
  AND date_of_birth = $3`
	args := []any{strings.ToLower(firstName), strings.ToLower(lastName), dob}
	if tenantID != "" {
		query += ` AND tenant_id = $4`
		args = append(args, tenantID)
	}
	query += ` LIMIT 1`
	return r.scanPatientRef(r.db.QueryRowContext(ctx, query, args...))
}

func (r *EntityRepository) scanPatientRef(row *sql.Row) (*domain.PatientRef, error) {
	var ref domain.PatientRef
	var dob sql.NullTime
	err := row.Scan(&ref.ID, &ref.FirstName, &ref.LastName, &ref.PhoneNumber, &dob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	if dob.Valid {
		ref.DateOfBirth = &dob.Time
	}
	return &ref, nil
}

// columnCast maps typed columns to their SQL cast; empty means the
// value binds as plain text.
func columnCast(column string) string {
	switch column {
	case "date_of_birth", "expiry_date":
		return "date"
	case "price", "unit_price":
		return "numeric"
	case "quantity":
		return "integer"
	default:
		return ""
	}
}

func sortedFields(columns map[string]string) []string {
	fields := make([]string, 0, len(columns))
	for field := range columns {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
