package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/booklab/booklab/internal/config"
	"github.com/booklab/booklab/internal/core/ports"
	"github.com/booklab/booklab/internal/core/usecase"
	"github.com/booklab/booklab/internal/infrastructure/engine/openai"
	"github.com/booklab/booklab/internal/infrastructure/export/excel"
	"github.com/booklab/booklab/internal/infrastructure/pdftext"
	"github.com/booklab/booklab/internal/infrastructure/queue/nats"
	"github.com/booklab/booklab/internal/infrastructure/render/htmlrender"
	"github.com/booklab/booklab/internal/infrastructure/repository/postgres"
	"github.com/booklab/booklab/internal/infrastructure/resilience"
	"github.com/booklab/booklab/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Docs      ports.DocumentRepository
	Pages     ports.PageRepository
	Storage   ports.ObjectStorage
	Exporter  ports.ReportExporter
	IngestUC  ports.DocumentIngestor
	ProcessUC *usecase.ProcessDocumentUseCase
	EditUC    ports.PageEditor

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
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	pages := postgres.NewPageRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	engine := openai.New(openai.Config{
		BaseURL:        cfg.OpenAIBaseURL,
		APIKey:         cfg.OpenAIAPIKey,
		Model:          cfg.OpenAIModel,
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
		Timeout:        time.Duration(cfg.OpenAITimeoutSeconds) * time.Second,
		RequestsPerMin: cfg.OpenAIRequestsPerMin,
	}, executor)

	renderer, err := htmlrender.New()
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	ingestUC := usecase.NewIngestDocumentUseCase(docs, pages, storage, pdftext.New())
	processUC := usecase.NewProcessDocumentUseCase(docs, pages, storage, engine, renderer, logger)
	editUC := usecase.NewEditPageUseCase(pages)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Docs:     docs,
		Pages:    pages,
		Storage:  storage,
		Exporter: excel.New(),

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		EditUC:    editUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
