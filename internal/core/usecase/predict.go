package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/grading"
	"github.com/academica/gradeflow/internal/core/ports"
)

// FallbackReasoning is stored verbatim when the LLM estimate is unavailable,
// so a reader of the prediction record can tell it apart from an AI answer.
const FallbackReasoning = "LLM prediction unavailable; grade taken from the deterministic calculation."

type PredictGradeUseCase struct {
	models      ports.CourseModelRepository
	predictions ports.PredictionRepository
	training    ports.TrainingDataRepository
	predictor   ports.GradePredictor
	merger      ports.CourseMergeService
}

func NewPredictGradeUseCase(
	models ports.CourseModelRepository,
	predictions ports.PredictionRepository,
	training ports.TrainingDataRepository,
	predictor ports.GradePredictor,
	merger ports.CourseMergeService,
) *PredictGradeUseCase {
	return &PredictGradeUseCase{
		models:      models,
		predictions: predictions,
		training:    training,
		predictor:   predictor,
		merger:      merger,
	}
}

// Predict runs the deterministic calculator, asks the LLM and the regression
// model for estimates, combines them, and persists one immutable record.
// LLM or regression trouble degrades to the deterministic result.
func (uc *PredictGradeUseCase) Predict(ctx context.Context, ownerID string) (*domain.Prediction, error) {
	model, err := uc.loadOrBuildModel(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	calc := grading.Calculate(model)

	prediction := &domain.Prediction{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Grade:             calc.CurrentGrade,
		LetterGrade:       calc.LetterGrade,
		Reasoning:         FallbackReasoning,
		CategorizedGrades: calc.CategorizedGrades,
		Calculation:       calc,
		CourseModel:       *model,
		CreatedAt:         time.Now().UTC(),
	}

	if ai := uc.askLLM(ctx, model, calc); ai != nil {
		prediction.AIPrediction = ai
		prediction.Grade = ai.NumericalGrade
		prediction.LetterGrade = ai.Grade
		prediction.Reasoning = ai.Reasoning
	}

	if ml := uc.askRegression(ctx, model); ml != nil {
		prediction.MLPrediction = ml
		if prediction.AIPrediction != nil {
			prediction.Combined = combine(prediction.AIPrediction, ml)
			prediction.Grade = prediction.Combined.Grade
			prediction.LetterGrade = grading.LetterGrade(prediction.Combined.Grade)
		}
	}

	if err := uc.predictions.Create(ctx, prediction); err != nil {
		return nil, fmt.Errorf("persist prediction: %w", err)
	}
	return prediction, nil
}

func (uc *PredictGradeUseCase) Latest(ctx context.Context, ownerID string) (*domain.Prediction, error) {
	return uc.predictions.Latest(ctx, ownerID)
}

func (uc *PredictGradeUseCase) AddTrainingRow(ctx context.Context, row domain.TrainingRow) error {
	if len(row.PreviousGrades) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "add training row", fmt.Errorf("previous_grades is required"))
	}
	if row.AssignmentWeight < 0 || row.ExamWeight < 0 || row.AssignmentWeight+row.ExamWeight == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "add training row", fmt.Errorf("weights must be non-negative and not both zero"))
	}
	if row.FinalGrade < 0 || row.FinalGrade > 120 {
		return domain.WrapError(domain.ErrInvalidInput, "add training row", fmt.Errorf("final_grade %.1f out of range", row.FinalGrade))
	}
	return uc.training.Add(ctx, row)
}

func (uc *PredictGradeUseCase) loadOrBuildModel(ctx context.Context, ownerID string) (*domain.CanonicalCourseModel, error) {
	model, err := uc.models.Get(ctx, ownerID)
	if err == nil {
		return model, nil
	}
	if !domain.IsKind(err, domain.ErrCourseModelNotFound) {
		return nil, fmt.Errorf("load course model: %w", err)
	}
	return uc.merger.MergeForOwner(ctx, ownerID)
}

// askLLM returns nil on any failure; the caller keeps the deterministic
// grade. A structurally valid response still must survive sanity checks.
func (uc *PredictGradeUseCase) askLLM(ctx context.Context, model *domain.CanonicalCourseModel, calc domain.GradeCalculation) *domain.AIPrediction {
	if uc.predictor == nil {
		return nil
	}

	llmCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	ai, err := uc.predictor.PredictFinalGrade(llmCtx, model, calc)
	if err != nil {
		slog.Warn("llm_prediction_fallback", "error", err)
		return nil
	}
	if ai == nil || strings.TrimSpace(ai.Grade) == "" || strings.TrimSpace(ai.Reasoning) == "" ||
		ai.NumericalGrade < 0 || ai.NumericalGrade > 120 {
		slog.Warn("llm_prediction_rejected", "prediction", ai)
		return nil
	}
	return ai
}

func (uc *PredictGradeUseCase) askRegression(ctx context.Context, model *domain.CanonicalCourseModel) *domain.MLPrediction {
	if uc.training == nil {
		return nil
	}

	rows, err := uc.training.List(ctx)
	if err != nil {
		slog.Warn("training_data_unavailable", "error", err)
		return nil
	}
	if len(rows) == 0 {
		rows = grading.SampleTrainingRows()
		for _, row := range rows {
			if err := uc.training.Add(ctx, row); err != nil {
				slog.Warn("training_data_seed_failed", "error", err)
				break
			}
		}
	}

	regression, err := grading.FitRegression(rows)
	if err != nil {
		slog.Warn("regression_fit_failed", "error", err)
		return nil
	}

	observation := grading.ObservationFromModel(model)
	if len(observation.PreviousGrades) == 0 {
		return nil
	}
	return &domain.MLPrediction{
		Grade: regression.Predict(observation),
		Model: grading.RegressionModelName,
	}
}

// combine averages the two estimates; confidence reflects their agreement.
func combine(ai *domain.AIPrediction, ml *domain.MLPrediction) *domain.CombinedPrediction {
	combined := &domain.CombinedPrediction{
		Grade:      (ai.NumericalGrade + ml.Grade) / 2,
		LLMGrade:   ai.NumericalGrade,
		MLGrade:    ml.Grade,
		Confidence: domain.ConfidenceMedium,
		Reasoning:  ai.Reasoning,
	}
	switch diff := math.Abs(ai.NumericalGrade - ml.Grade); {
	case diff < 5:
		combined.Confidence = domain.ConfidenceHigh
	case diff > 15:
		combined.Confidence = domain.ConfidenceLow
	}
	return combined
}
