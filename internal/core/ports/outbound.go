package ports

import (
	"context"
	"io"
	"time"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/merge"
)

// DocumentRepository persists and reads per-owner document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error)
	FindByOwnerAndPath(ctx context.Context, ownerID, filePath string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
	Update(ctx context.Context, doc *domain.Document) error
	// UpdateStatusBatch transitions all listed documents in one transaction:
	// either every document moves or none do.
	UpdateStatusBatch(ctx context.Context, ownerID string, ids []string, status domain.DocumentStatus, processedAt time.Time) error
}

// CourseModelRepository stores the single canonical course model per owner.
// Save is compare-and-swap on the model version.
type CourseModelRepository interface {
	Get(ctx context.Context, ownerID string) (*domain.CanonicalCourseModel, error)
	Save(ctx context.Context, ownerID string, model *domain.CanonicalCourseModel, expectedVersion int64) error
}

// PredictionRepository is append-only: predictions are never mutated.
type PredictionRepository interface {
	Create(ctx context.Context, prediction *domain.Prediction) error
	Latest(ctx context.Context, ownerID string) (*domain.Prediction, error)
}

// TrainingDataRepository stores regression training rows.
type TrainingDataRepository interface {
	List(ctx context.Context) ([]domain.TrainingRow, error)
	Add(ctx context.Context, row domain.TrainingRow) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes upload events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, ownerID, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(ctx context.Context, ownerID, documentID string) error) error
}

// ExtractedText is the text-extraction capability result.
type ExtractedText struct {
	Text      string
	PageCount int
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (ExtractedText, error)
}

// CourseNormalizer converts raw text for one document type into its typed
// payload. Implementations may use an LLM; callers own the fallback.
type CourseNormalizer interface {
	NormalizeSyllabus(ctx context.Context, text string) (*domain.SyllabusData, error)
	NormalizeGrades(ctx context.Context, text string, categories []string) (*domain.GradesData, error)
	NormalizeTranscript(ctx context.Context, text string) (*domain.TranscriptData, error)
}

// CourseMerger is the LLM-assisted merge. Callers fall back to the
// deterministic merge on any error.
type CourseMerger interface {
	Merge(ctx context.Context, in merge.Inputs) (*domain.CanonicalCourseModel, error)
}

// GradePredictor produces the qualitative final-grade estimate.
type GradePredictor interface {
	PredictFinalGrade(ctx context.Context, model *domain.CanonicalCourseModel, calc domain.GradeCalculation) (*domain.AIPrediction, error)
}
