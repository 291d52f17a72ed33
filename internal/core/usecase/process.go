package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/normalize"
	"github.com/academica/gradeflow/internal/core/ports"
)

// llmCallTimeout bounds every LLM round-trip; on expiry the deterministic
// fallback takes over.
const llmCallTimeout = 60 * time.Second

type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	extractor  ports.TextExtractor
	normalizer ports.CourseNormalizer
	merger     ports.CourseMergeService
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	normalizer ports.CourseNormalizer,
	merger ports.CourseMergeService,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:       repo,
		extractor:  extractor,
		normalizer: normalizer,
		merger:     merger,
	}
}

// ProcessByID runs extract -> normalize -> merge for one document. Extraction
// failures surface to the caller (status=error, retryable); normalization
// failures degrade to extract_only; LLM trouble degrades silently to the
// deterministic extractors.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, ownerID, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	extracted, err := uc.extractor.Extract(ctx, doc)
	if err == nil && extracted.Text == "" {
		err = errors.New("empty extracted text")
	}
	now := time.Now().UTC()
	if err != nil {
		// Wrap before recording so the stored error message carries the
		// extraction kind, same as the error returned to the caller.
		extractErr := domain.WrapError(domain.ErrExtraction, "extract document text", err)
		if advanceErr := doc.Advance(domain.Event{Kind: domain.EventExtractFailed, Err: extractErr}, now); advanceErr != nil {
			return advanceErr
		}
		if updateErr := uc.repo.Update(ctx, doc); updateErr != nil {
			return fmt.Errorf("persist error status: %w", updateErr)
		}
		return extractErr
	}

	if err := doc.Advance(domain.Event{
		Kind:      domain.EventExtractSucceeded,
		Text:      extracted.Text,
		PageCount: extracted.PageCount,
	}, now); err != nil {
		return err
	}
	if err := uc.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("persist extracted text: %w", err)
	}

	if doc.Type == domain.TypeOther {
		return nil
	}

	data, err := uc.normalizeDocument(ctx, doc)
	if err != nil {
		if advanceErr := doc.Advance(domain.Event{Kind: domain.EventNormalizeFailed, Err: err}, time.Now().UTC()); advanceErr != nil {
			return advanceErr
		}
		if updateErr := uc.repo.Update(ctx, doc); updateErr != nil {
			return fmt.Errorf("persist extract_only status: %w", updateErr)
		}
		slog.Warn("document_normalization_failed",
			"owner_id", ownerID, "document_id", documentID, "type", doc.Type, "error", err)
		return nil
	}

	// Structured data is persisted while the document stays extracted; the
	// merge marks every contributing document processed in one batch, so a
	// document never claims processed without a stored course model.
	doc.StructuredData = data
	doc.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("persist structured data: %w", err)
	}

	if _, err := uc.merger.MergeForOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("merge course model: %w", err)
	}
	return nil
}

// normalizeDocument tries the LLM first and falls back to the deterministic
// extractors. An error here means even the fallback found nothing usable.
func (uc *ProcessDocumentUseCase) normalizeDocument(ctx context.Context, doc *domain.Document) (json.RawMessage, error) {
	llmCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	switch doc.Type {
	case domain.TypeSyllabus:
		data, err := uc.normalizer.NormalizeSyllabus(llmCtx, doc.RawText)
		if err != nil {
			slog.Warn("syllabus_normalizer_fallback", "document_id", doc.ID, "error", err)
			data = normalize.FallbackSyllabus(doc.RawText)
		}
		return json.Marshal(data)

	case domain.TypeGrades:
		categories := uc.syllabusCategories(ctx, doc.OwnerID)
		data, err := uc.normalizer.NormalizeGrades(llmCtx, doc.RawText, categories)
		if err != nil {
			slog.Warn("grades_normalizer_fallback", "document_id", doc.ID, "error", err)
			data = normalize.FallbackGrades(doc.RawText)
		}
		if len(data.CompletedAssignments) == 0 && len(data.IncompleteAssignments) == 0 {
			return nil, errors.New("no assignments recognized in grade report")
		}
		return json.Marshal(data)

	case domain.TypeTranscript:
		data, err := uc.normalizer.NormalizeTranscript(llmCtx, doc.RawText)
		if err != nil {
			slog.Warn("transcript_normalizer_fallback", "document_id", doc.ID, "error", err)
			data = normalize.FallbackTranscript(doc.RawText)
		}
		if data.GPA == 0 && len(data.AcademicHistory.RelevantCourses) == 0 {
			return nil, errors.New("no GPA or course history recognized in transcript")
		}
		return json.Marshal(data)

	default:
		return nil, fmt.Errorf("document type %s is not normalizable", doc.Type)
	}
}

// syllabusCategories feeds already-normalized syllabus categories into grade
// normalization; categorization accuracy improves when they are known.
func (uc *ProcessDocumentUseCase) syllabusCategories(ctx context.Context, ownerID string) []string {
	docs, err := uc.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil
	}
	for _, d := range docs {
		if d.Type != domain.TypeSyllabus || len(d.StructuredData) == 0 {
			continue
		}
		var syllabus domain.SyllabusData
		if err := json.Unmarshal(d.StructuredData, &syllabus); err != nil {
			continue
		}
		categories := make([]string, 0, len(syllabus.GradeWeights))
		for _, w := range syllabus.GradeWeights {
			categories = append(categories, w.Name)
		}
		return categories
	}
	return nil
}
