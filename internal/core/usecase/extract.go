package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
	"github.com/avenmed/clinic-intake/internal/core/ports"
)

// ExtractTimeouts bound the two slow OCR phases independently.
type ExtractTimeouts struct {
	EngineStart time.Duration
	Recognize   time.Duration
}

// ExtractDocumentUseCase runs the per-document pipeline:
// preprocess -> recognize -> classify -> parse -> score, with a
// degraded terminal state reachable from any step. Callers always get
// a result object, never an error.
type ExtractDocumentUseCase struct {
	pre      ports.ImagePreprocessor
	engine   ports.ImageRecognizer
	timeouts ExtractTimeouts
	logger   *slog.Logger
}

func NewExtractDocumentUseCase(
	pre ports.ImagePreprocessor,
	engine ports.ImageRecognizer,
	timeouts ExtractTimeouts,
	logger *slog.Logger,
) *ExtractDocumentUseCase {
	if timeouts.EngineStart <= 0 {
		timeouts.EngineStart = 30 * time.Second
	}
	if timeouts.Recognize <= 0 {
		timeouts.Recognize = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractDocumentUseCase{
		pre:      pre,
		engine:   engine,
		timeouts: timeouts,
		logger:   logger,
	}
}

func (uc *ExtractDocumentUseCase) Extract(ctx context.Context, fileName string, image []byte) (doc domain.ExtractedDocument) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("ocr_panic_degraded", "file", fileName, "panic", r)
			doc = domain.DegradedDocument()
		}
	}()

	if len(image) == 0 {
		uc.logger.Warn("ocr_empty_input", "file", fileName)
		return domain.DegradedDocument()
	}

	// Preprocess failure is absorbed by the adapter: undecodable
	// input comes back unchanged and the engine gets its shot at the
	// original bytes.
	processed := uc.pre.Normalize(image)

	startCtx, cancelStart := context.WithTimeout(ctx, uc.timeouts.EngineStart)
	defer cancelStart()
	if err := uc.engine.Probe(startCtx); err != nil {
		uc.logger.Warn("ocr_engine_start_degraded", "file", fileName, "error", err)
		return domain.DegradedDocument()
	}

	recognizeCtx, cancelRecognize := context.WithTimeout(ctx, uc.timeouts.Recognize)
	defer cancelRecognize()
	rec, err := uc.engine.Recognize(recognizeCtx, processed)
	if err != nil {
		uc.logger.Warn("ocr_recognize_degraded", "file", fileName, "error", err)
		return domain.DegradedDocument()
	}

	confidence := domain.ClampConfidence(rec.Confidence / 100.0)
	docType := ClassifyText(rec.Text)
	fields := ParseFields(rec.Text)

	uc.logger.Info("ocr_extracted",
		"file", fileName,
		"document_type", string(docType),
		"confidence", confidence,
		"text_len", len(rec.Text),
	)

	return domain.ExtractedDocument{
		RawText:         rec.Text,
		Confidence:      confidence,
		DocumentType:    docType,
		Fields:          fields,
		FieldConfidence: ScoreFields(fields),
	}
}
