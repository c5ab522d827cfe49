package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
	"github.com/avenmed/clinic-intake/internal/core/ports"
	"github.com/avenmed/clinic-intake/internal/core/usecase"
	"github.com/avenmed/clinic-intake/internal/observability/metrics"
)

const (
	tenantIDHeader = "X-Tenant-Id"
	userIDHeader   = "X-User-Id"

	// Multipart memory threshold. The upload itself is still bounded
	// by the submit use case's size limit.
	maxMultipartMemory = 8 << 20
)

type RouterConfig struct {
	ServiceName string
	// RateLimitRPS and RateLimitBurst gate the whole API surface.
	// Zero disables the gate.
	RateLimitRPS   float64
	RateLimitBurst int
	// MaxConcurrent bounds in-flight requests; zero disables.
	MaxConcurrent  int
	AcquireTimeout time.Duration
	// MaxUploadBytes caps request bodies before they reach the use
	// case, so oversized uploads fail with 413 instead of buffering.
	MaxUploadBytes int64
}

type Router struct {
	cfg       RouterConfig
	submitter ports.ImportSubmitter
	reader    ports.ImportReader
	patients  ports.PatientRowImporter
	extractor ports.DocumentExtractor
	parser    ports.SpreadsheetParser
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg RouterConfig,
	submitter ports.ImportSubmitter,
	reader ports.ImportReader,
	patients ports.PatientRowImporter,
	extractor ports.DocumentExtractor,
	parser ports.SpreadsheetParser,
	m *metrics.HTTPServerMetrics,
) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api"
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 100 * time.Millisecond
	}
	return &Router{
		cfg:       cfg,
		submitter: submitter,
		reader:    reader,
		patients:  patients,
		extractor: extractor,
		parser:    parser,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/imports", rt.submitImport)
	mux.HandleFunc("/v1/imports/template", rt.importTemplate)
	mux.HandleFunc("/v1/imports/patients", rt.importPatients)
	mux.HandleFunc("/v1/imports/", rt.getImportByID)
	mux.HandleFunc("/v1/documents/extract", rt.extractDocument)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.instrument(handler)
	}
	if rt.cfg.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrent, rt.cfg.AcquireTimeout)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, "/v1/imports/") && path != "/v1/imports/template" && path != "/v1/imports/patients" {
			path = "/v1/imports/{id}"
		}
		rt.metrics.Instrument(rt.cfg.ServiceName, path, next).ServeHTTP(w, r)
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitImport accepts a multipart upload and enqueues a bulk import.
// A successful submission returns 202 with the job receipt; the job
// itself runs on the worker.
func (rt *Router) submitImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	data, fileName, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	entityType := strings.TrimSpace(r.FormValue("entityType"))

	receipt, err := rt.submitter.Submit(r.Context(), domain.SubmitRequest{
		TenantID:   strings.TrimSpace(r.Header.Get(tenantIDHeader)),
		UserID:     strings.TrimSpace(r.Header.Get(userIDHeader)),
		EntityType: entityType,
		FileName:   fileName,
		Data:       data,
	})
	if err != nil {
		rt.observeSubmission(entityType, "rejected")
		writeError(w, r, err)
		return
	}

	rt.observeSubmission(entityType, "accepted")
	writeJSON(w, http.StatusAccepted, receipt)
}

func (rt *Router) observeSubmission(entityType, result string) {
	if rt.metrics == nil {
		return
	}
	if entityType == "" {
		entityType = "UNKNOWN"
	}
	rt.metrics.ObserveSubmission(rt.cfg.ServiceName, entityType, result)
}

// getImportByID returns the job record, plus its summary once
// processing finished.
func (rt *Router) getImportByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/imports/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, errorBody("import job id is required"))
		return
	}

	job, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := rt.reader.GetSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*domain.ImportJob
		Summary *domain.ImportSummary `json:"summary,omitempty"`
	}{job, summary})
}

// importTemplate serves a downloadable header template for one entity
// type, as CSV (default) or XLSX.
func (rt *Router) importTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	entity := domain.EntityType(strings.TrimSpace(r.URL.Query().Get("entityType")))
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	switch format {
	case "", "csv":
		body, err := usecase.CSVTemplate(entity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", templateDisposition(entity, "csv"))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	case "xlsx":
		body, err := usecase.XLSXTemplate(entity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", templateDisposition(entity, "xlsx"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("format must be csv or xlsx"))
	}
}

func templateDisposition(entity domain.EntityType, ext string) string {
	name := strings.ToLower(string(entity))
	return fmt.Sprintf("attachment; filename=%q", name+"-import-template."+ext)
}

// importPatients runs the flexible-header patient import synchronously
// and returns the per-row outcomes.
func (rt *Router) importPatients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	data, fileName, ok := rt.readUpload(w, r)
	if !ok {
		return
	}

	sheet, err := rt.parser.Parse(fileName, data)
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrEmptyInput, "parse patient upload", err))
		return
	}

	result, err := rt.patients.ImportPatientRows(r.Context(), strings.TrimSpace(r.Header.Get(tenantIDHeader)), sheet)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// extractDocument runs OCR extraction. The use case degrades instead
// of failing, so this endpoint always answers 200 once the upload
// itself was readable.
func (rt *Router) extractDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	data, fileName, ok := rt.readUpload(w, r)
	if !ok {
		return
	}

	doc := rt.extractor.Extract(r.Context(), fileName, data)
	if rt.metrics != nil {
		rt.metrics.ObserveExtraction(rt.cfg.ServiceName, string(doc.DocumentType), doc.Confidence)
	}
	writeJSON(w, http.StatusOK, doc)
}

// readUpload pulls the multipart "file" part into memory. It writes
// the error response itself and reports ok=false on failure.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (data []byte, fileName string, ok bool) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody(
				fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit)))
			return nil, "", false
		}
		writeJSON(w, http.StatusBadRequest, errorBody("multipart form is required"))
		return nil, "", false
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart field 'file' is required"))
		return nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody(
				fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit)))
			return nil, "", false
		}
		writeJSON(w, http.StatusBadRequest, errorBody("could not read uploaded file"))
		return nil, "", false
	}
	return data, fileHeader.Filename, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps a domain error to its HTTP status. Rate-limit
// rejections additionally carry a Retry-After header.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds())))
	}

	status := mapErrorToHTTPStatus(err)
	body := errorBody(err.Error())
	body["request_id"] = requestIDFromContext(r.Context())
	writeJSON(w, status, body)
}
