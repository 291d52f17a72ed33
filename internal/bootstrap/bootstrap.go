// Package bootstrap wires infrastructure into the use cases for both the api
// and worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/academica/gradeflow/internal/config"
	"github.com/academica/gradeflow/internal/core/ports"
	"github.com/academica/gradeflow/internal/core/usecase"
	"github.com/academica/gradeflow/internal/infrastructure/export/xlsx"
	"github.com/academica/gradeflow/internal/infrastructure/extractor/pdftext"
	"github.com/academica/gradeflow/internal/infrastructure/llm/ollama"
	"github.com/academica/gradeflow/internal/infrastructure/queue/nats"
	"github.com/academica/gradeflow/internal/infrastructure/repository/postgres"
	"github.com/academica/gradeflow/internal/infrastructure/resilience"
	"github.com/academica/gradeflow/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	Models    ports.CourseModelRepository

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	MergeUC   ports.CourseMergeService
	PredictUC ports.PredictionService
	Exporter  ports.ReportExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	models := postgres.NewCourseModelRepository(db)
	predictions := postgres.NewPredictionRepository(db)
	training := postgres.NewTrainingDataRepository(db)

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

	llm := ollama.New(cfg.OllamaURL, cfg.OllamaModel, executor)
	extractor := pdftext.NewExtractor(storage)

	ingestUC := usecase.NewIngestDocumentUseCase(documents, storage, queue)
	mergeUC := usecase.NewMergeCourseUseCase(documents, models, llm, nil)
	processUC := usecase.NewProcessDocumentUseCase(documents, extractor, llm, mergeUC)
	predictUC := usecase.NewPredictGradeUseCase(models, predictions, training, llm, mergeUC)
	exporter := xlsx.NewService(models, nil)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Documents: documents,
		Models:    models,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		MergeUC:   mergeUC,
		PredictUC: predictUC,
		Exporter:  exporter,

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
