package ports

import (
	"context"
	"io"

	"github.com/academica/gradeflow/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
// Upload is idempotent per (owner, file path); created reports whether a new
// document record was made. Reprocess re-queues an existing document through
// the pipeline, which is how a document stuck in error or extract_only gets
// retried.
type DocumentIngestor interface {
	Upload(ctx context.Context, ownerID string, docType domain.DocumentType, filename string, body io.Reader) (doc *domain.Document, created bool, err error)
	Reprocess(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
}

// DocumentProcessor runs the extract/normalize/merge pipeline for one
// document, typically from the queue worker.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, ownerID, documentID string) error
}

// CourseMergeService rebuilds the canonical course model for an owner.
type CourseMergeService interface {
	MergeForOwner(ctx context.Context, ownerID string) (*domain.CanonicalCourseModel, error)
}

// PredictionService produces and reads final-grade predictions.
type PredictionService interface {
	Predict(ctx context.Context, ownerID string) (*domain.Prediction, error)
	Latest(ctx context.Context, ownerID string) (*domain.Prediction, error)
	AddTrainingRow(ctx context.Context, row domain.TrainingRow) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error)
}

// ReportExporter renders the current grade standing as a workbook.
type ReportExporter interface {
	ExportGradeReport(ctx context.Context, ownerID string) ([]byte, error)
}
