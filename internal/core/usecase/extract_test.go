package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

type preprocessorFake struct {
	out    []byte
	called bool
}

func (f *preprocessorFake) Normalize(data []byte) []byte {
	f.called = true
	if f.out != nil {
		return f.out
	}
	return data
}

type recognizerFake struct {
	rec          domain.Recognition
	probeErr     error
	recognizeErr error
	panicOnRec   bool
	gotImage     []byte
}

func (f *recognizerFake) Probe(context.Context) error { return f.probeErr }

func (f *recognizerFake) Recognize(_ context.Context, image []byte) (domain.Recognition, error) {
	if f.panicOnRec {
		panic("engine crashed")
	}
	f.gotImage = image
	if f.recognizeErr != nil {
		return domain.Recognition{}, f.recognizeErr
	}
	return f.rec, nil
}

func newExtractUC(pre *preprocessorFake, engine *recognizerFake) *ExtractDocumentUseCase {
	return NewExtractDocumentUseCase(pre, engine, ExtractTimeouts{
		EngineStart: time.Second,
		Recognize:   time.Second,
	}, nil)
}

func assertDegraded(t *testing.T, doc domain.ExtractedDocument) {
	t.Helper()
	if doc.Confidence != domain.MinConfidence {
		t.Fatalf("degraded document must have floor confidence, got %v", doc.Confidence)
	}
	if doc.DocumentType != domain.DocGeneral {
		t.Fatalf("degraded document must be GENERAL, got %s", doc.DocumentType)
	}
	if doc.RawText != "" {
		t.Fatalf("degraded document must have empty text, got %q", doc.RawText)
	}
}

func TestExtractSuccess(t *testing.T) {
	pre := &preprocessorFake{out: []byte("normalized")}
	engine := &recognizerFake{rec: domain.Recognition{
		Text:       "Rx\nJane Doe\nAge: 45\nMetformin 500mg",
		Confidence: 82.0,
	}}
	uc := newExtractUC(pre, engine)

	doc := uc.Extract(context.Background(), "scan.png", []byte("raw image"))

	if !pre.called {
		t.Fatalf("expected preprocessing to run")
	}
	if string(engine.gotImage) != "normalized" {
		t.Fatalf("expected engine to receive preprocessed bytes, got %q", engine.gotImage)
	}
	if doc.DocumentType != domain.DocPrescription {
		t.Fatalf("expected PRESCRIPTION, got %s", doc.DocumentType)
	}
	if doc.Confidence != 0.82 {
		t.Fatalf("expected confidence 0.82, got %v", doc.Confidence)
	}
	if doc.Fields.FirstName != "Jane" || doc.Fields.Age != "45" {
		t.Fatalf("unexpected fields: %+v", doc.Fields)
	}
	if len(doc.FieldConfidence) == 0 {
		t.Fatalf("expected field confidence scores")
	}
}

func TestExtractClampsConfidence(t *testing.T) {
	high := &recognizerFake{rec: domain.Recognition{Text: "rx", Confidence: 99.9}}
	doc := newExtractUC(&preprocessorFake{}, high).Extract(context.Background(), "a.png", []byte("img"))
	if doc.Confidence != domain.MaxConfidence {
		t.Fatalf("expected confidence capped at %v, got %v", domain.MaxConfidence, doc.Confidence)
	}

	low := &recognizerFake{rec: domain.Recognition{Text: "rx", Confidence: 2.0}}
	doc = newExtractUC(&preprocessorFake{}, low).Extract(context.Background(), "a.png", []byte("img"))
	if doc.Confidence != domain.MinConfidence {
		t.Fatalf("expected confidence floored at %v, got %v", domain.MinConfidence, doc.Confidence)
	}
}

func TestExtractDegradesOnEmptyInput(t *testing.T) {
	uc := newExtractUC(&preprocessorFake{}, &recognizerFake{})
	assertDegraded(t, uc.Extract(context.Background(), "empty.png", nil))
}

func TestExtractDegradesOnEngineStartFailure(t *testing.T) {
	engine := &recognizerFake{probeErr: errors.New("binary not found")}
	uc := newExtractUC(&preprocessorFake{}, engine)
	assertDegraded(t, uc.Extract(context.Background(), "a.png", []byte("img")))
}

func TestExtractDegradesOnRecognitionFailure(t *testing.T) {
	engine := &recognizerFake{recognizeErr: errors.New("ocr timeout")}
	uc := newExtractUC(&preprocessorFake{}, engine)
	assertDegraded(t, uc.Extract(context.Background(), "a.png", []byte("img")))
}

// Extraction never propagates a panic; a crashing engine yields the
// degraded document.
func TestExtractDegradesOnPanic(t *testing.T) {
	engine := &recognizerFake{panicOnRec: true}
	uc := newExtractUC(&preprocessorFake{}, engine)
	assertDegraded(t, uc.Extract(context.Background(), "a.png", []byte("img")))
}

func TestExtractDegradedDocumentShape(t *testing.T) {
	doc := domain.DegradedDocument()
	if doc.Fields.Medications == nil {
		t.Fatalf("degraded document must carry an empty medication list, not nil")
	}
	if doc.FieldConfidence == nil {
		t.Fatalf("degraded document must carry an empty confidence map, not nil")
	}
}
