package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

type Config struct {
	Binary      string // binary name or absolute path; empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // page segmentation mode; 0 = engine default
	OEM         int // 1 = LSTM; 0 = engine default
	WorkDir     string // temp dir for staged images; empty -> os.TempDir()
}

// Engine drives the tesseract binary over os/exec. Recognition writes
// the image to a temp file, runs one pass for text and one TSV pass
// for word confidence, and removes the file no matter how either pass
// ends.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Probe verifies the engine can start, bounded by the caller's
// context (the engine-start timeout).
func (e *Engine) Probe(ctx context.Context) error {
	_, errb, err := e.runner.Run(ctx, e.cfg.Binary, "--version")
	if err != nil {
		return fmt.Errorf("tesseract probe: %w: %s", err, truncate(string(errb), 512))
	}
	return nil
}

func (e *Engine) Recognize(ctx context.Context, image []byte) (domain.Recognition, error) {
	start := time.Now()

	path, err := e.stageImage(image)
	if err != nil {
		return domain.Recognition{}, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			e.logger.Warn("ocr_temp_cleanup_failed", "path", path, "error", rmErr)
		}
	}()

	text, err := e.recognizeText(ctx, path)
	if err != nil {
		return domain.Recognition{}, err
	}

	confidence, err := e.meanWordConfidence(ctx, path)
	if err != nil {
		// Text came through; a missing confidence pass only costs the
		// caller its floor score.
		e.logger.Warn("ocr_tsv_confidence_failed", "error", err)
		confidence = 0
	}

	e.logger.Debug("ocr_recognized",
		"duration_ms", time.Since(start).Milliseconds(),
		"text_len", len(text),
		"confidence", confidence,
	)
	return domain.Recognition{Text: text, Confidence: confidence}, nil
}

func (e *Engine) stageImage(image []byte) (string, error) {
	f, err := os.CreateTemp(e.cfg.WorkDir, "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("stage image: %w", err)
	}
	if _, err := f.Write(image); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write staged image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close staged image: %w", err)
	}
	return f.Name(), nil
}

func (e *Engine) recognizeText(ctx context.Context, path string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, e.baseArgs(path)...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 2048))
	}
	return strings.TrimSpace(string(out)), nil
}

// meanWordConfidence runs tesseract in TSV mode and averages the
// per-word conf column onto the engine's native 0-100 scale.
func (e *Engine) meanWordConfidence(ctx context.Context, path string) (float64, error) {
	args := append(e.baseArgs(path), "tsv")
	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w: %s", err, truncate(string(errb), 2048))
	}

	var sum float64
	var n int
	for i, line := range strings.Split(string(out), "\n") {
		if i == 0 || line == "" {
			continue // header
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf := cols[10]
		if conf == "" || conf == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (e *Engine) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
