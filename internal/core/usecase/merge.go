package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/merge"
	"github.com/academica/gradeflow/internal/core/normalize"
	"github.com/academica/gradeflow/internal/core/ports"
)

// casMaxAttempts bounds the compare-and-swap retry loop when concurrent
// merges for the same owner collide.
const casMaxAttempts = 3

type MergeCourseUseCase struct {
	docs    ports.DocumentRepository
	models  ports.CourseModelRepository
	merger  ports.CourseMerger
	matcher merge.CategoryMatcher
}

func NewMergeCourseUseCase(
	docs ports.DocumentRepository,
	models ports.CourseModelRepository,
	merger ports.CourseMerger,
	matcher merge.CategoryMatcher,
) *MergeCourseUseCase {
	if matcher == nil {
		matcher = merge.KeywordMatcher
	}
	return &MergeCourseUseCase{
		docs:    docs,
		models:  models,
		merger:  merger,
		matcher: matcher,
	}
}

// MergeForOwner reconciles every normalized payload the owner has into one
// canonical course model, writes it with compare-and-swap, and batch-marks
// the contributing documents processed in a single transaction.
func (uc *MergeCourseUseCase) MergeForOwner(ctx context.Context, ownerID string) (*domain.CanonicalCourseModel, error) {
	docs, err := uc.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	inputs, contributing := collectInputs(docs)
	if len(contributing) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "merge course model",
			fmt.Errorf("owner %s has no normalized documents", ownerID))
	}

	model := uc.buildModel(ctx, inputs)

	if err := uc.saveWithCAS(ctx, ownerID, model); err != nil {
		return nil, err
	}

	// The batch either marks every contributing document processed or none,
	// so no document claims processed without the model it fed being stored.
	now := time.Now().UTC()
	ids := make([]string, 0, len(contributing))
	for _, doc := range contributing {
		probe := doc
		if err := probe.Advance(domain.Event{Kind: domain.EventNormalizeSucceeded, Data: probe.StructuredData}, now); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}
	if len(ids) > 0 {
		if err := uc.docs.UpdateStatusBatch(ctx, ownerID, ids, domain.StatusProcessed, now); err != nil {
			return nil, fmt.Errorf("batch mark processed: %w", err)
		}
	}

	return model, nil
}

// buildModel tries the LLM-assisted merge and falls back to the
// deterministic rules on any failure or invariant violation.
func (uc *MergeCourseUseCase) buildModel(ctx context.Context, inputs merge.Inputs) *domain.CanonicalCourseModel {
	llmCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	if uc.merger != nil {
		model, err := uc.merger.Merge(llmCtx, inputs)
		if err == nil {
			model.GradeWeights = normalize.RescaleWeights(model.GradeWeights)
			err = model.Validate()
			if err == nil {
				return model
			}
		}
		slog.Warn("llm_merge_fallback", "error", err)
	}

	return merge.Merge(inputs, uc.matcher)
}

func (uc *MergeCourseUseCase) saveWithCAS(ctx context.Context, ownerID string, model *domain.CanonicalCourseModel) error {
	for attempt := 1; attempt <= casMaxAttempts; attempt++ {
		expected := int64(0)
		current, err := uc.models.Get(ctx, ownerID)
		if err == nil {
			expected = current.Version
		} else if !domain.IsKind(err, domain.ErrCourseModelNotFound) {
			return fmt.Errorf("load course model version: %w", err)
		}

		model.Version = expected + 1
		err = uc.models.Save(ctx, ownerID, model, expected)
		if err == nil {
			return nil
		}
		if !domain.IsKind(err, domain.ErrVersionConflict) {
			return fmt.Errorf("save course model: %w", err)
		}
		slog.Warn("course_model_cas_conflict", "owner_id", ownerID, "attempt", attempt)
	}
	return domain.WrapError(domain.ErrVersionConflict, "save course model",
		fmt.Errorf("gave up after %d attempts", casMaxAttempts))
}

// collectInputs picks the newest normalized payload per document type and
// returns the documents that contributed.
func collectInputs(docs []domain.Document) (merge.Inputs, []domain.Document) {
	var inputs merge.Inputs
	var contributing []domain.Document

	latest := map[domain.DocumentType]*domain.Document{}
	for i := range docs {
		doc := &docs[i]
		if len(doc.StructuredData) == 0 {
			continue
		}
		if current, ok := latest[doc.Type]; !ok || doc.UploadedAt.After(current.UploadedAt) {
			latest[doc.Type] = doc
		}
	}

	if doc, ok := latest[domain.TypeSyllabus]; ok {
		var syllabus domain.SyllabusData
		if err := json.Unmarshal(doc.StructuredData, &syllabus); err == nil {
			inputs.Syllabus = &syllabus
			contributing = append(contributing, *doc)
		}
	}
	if doc, ok := latest[domain.TypeGrades]; ok {
		var grades domain.GradesData
		if err := json.Unmarshal(doc.StructuredData, &grades); err == nil {
			inputs.Grades = &grades
			contributing = append(contributing, *doc)
		}
	}
	if doc, ok := latest[domain.TypeTranscript]; ok {
		var transcript domain.TranscriptData
		if err := json.Unmarshal(doc.StructuredData, &transcript); err == nil {
			inputs.Transcript = &transcript
			contributing = append(contributing, *doc)
		}
	}

	return inputs, contributing
}
