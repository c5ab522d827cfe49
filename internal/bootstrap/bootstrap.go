package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avenmed/clinic-intake/internal/config"
	"github.com/avenmed/clinic-intake/internal/core/ports"
	"github.com/avenmed/clinic-intake/internal/core/usecase"
	"github.com/avenmed/clinic-intake/internal/infrastructure/ocr/tesseract"
	"github.com/avenmed/clinic-intake/internal/infrastructure/preprocess"
	"github.com/avenmed/clinic-intake/internal/infrastructure/queue/nats"
	"github.com/avenmed/clinic-intake/internal/infrastructure/ratelimit"
	"github.com/avenmed/clinic-intake/internal/infrastructure/repository/postgres"
	"github.com/avenmed/clinic-intake/internal/infrastructure/resilience"
	"github.com/avenmed/clinic-intake/internal/infrastructure/spreadsheet"
)

type App struct {
	Config config.Config

	Queue  ports.MessageQueue
	Jobs   ports.ImportJobStore
	Parser ports.SpreadsheetParser

	SubmitUC  ports.ImportSubmitter
	ProcessUC ports.ImportProcessor
	PatientUC ports.PatientRowImporter
	ExtractUC ports.DocumentExtractor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	jobs := postgres.NewImportJobStore(db)
	if err := jobs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure job schema: %w", err)
	}
	entities := postgres.NewEntityRepository(db)
	if err := entities.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure entity schema: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	parser := spreadsheet.NewParser()
	gate := ratelimit.NewMemoryStore()

	submitUC := usecase.NewSubmitImportUseCase(jobs, queue, gate, parser, usecase.SubmitLimits{
		MaxFileSize:       cfg.MaxFileSizeBytes,
		MaxRows:           cfg.MaxImportRows,
		RateLimitInterval: time.Duration(cfg.ImportRateLimitSeconds) * time.Second,
	})
	processUC := usecase.NewProcessImportUseCase(jobs, entities, parser, cfg.ImportBatchSize, logger)

	aliases, err := loadAliases(cfg.PatientAliasFile, logger)
	if err != nil {
		return nil, err
	}
	patientUC := usecase.NewPatientImportUseCase(entities, entities, aliases, logger)

	normalizer := preprocess.NewNormalizer(cfg.PreprocessMinWidth, cfg.PreprocessTargetWidth, logger)
	engine := tesseract.New(tesseract.Config{
		Binary:      cfg.OCRBinary,
		Lang:        cfg.OCRLang,
		TessdataDir: cfg.OCRTessdataDir,
	}, logger)
	extractUC := usecase.NewExtractDocumentUseCase(normalizer, engine, usecase.ExtractTimeouts{
		EngineStart: time.Duration(cfg.OCREngineStartTimeoutMS) * time.Millisecond,
		Recognize:   time.Duration(cfg.OCRRecognizeTimeoutMS) * time.Millisecond,
	}, logger)

	return &App{
		Config: cfg,
		Queue:  queue,
		Jobs:   jobs,
		Parser: parser,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		PatientUC: patientUC,
		ExtractUC: extractUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// loadAliases reads the optional column alias file. An empty path
// means the built-in alias table.
func loadAliases(path string, logger *slog.Logger) ([]usecase.AliasGroup, error) {
	if path == "" {
		return nil, nil
	}
	aliases, err := usecase.LoadAliasTable(path)
	if err != nil {
		return nil, fmt.Errorf("load alias table %s: %w", path, err)
	}
	logger.Info("alias_table_loaded", "path", path, "groups", len(aliases))
	return aliases, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
