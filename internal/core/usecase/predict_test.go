package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/grading"
)

func storedCourseModel() *fakeModelRepo {
	return &fakeModelRepo{
		version: 1,
		model: &domain.CanonicalCourseModel{
			Course:       domain.CourseInfo{Name: "Linear Algebra", Instructor: "Dr. Chen"},
			GradeWeights: []domain.GradeWeight{{Name: "Homework", Weight: 1.0}},
			CompletedAssignments: []domain.CompletedAssignment{
				{Name: "Homework 1", Grade: domain.NumericGrade(90), MaxPoints: 100, Category: "Homework"},
			},
			GPA: 3.4,
		},
	}
}

func TestPredictFallsBackToDeterministicGrade(t *testing.T) {
	models := storedCourseModel()
	predictions := &fakePredictionRepo{}
	training := &fakeTrainingRepo{}
	predictor := &fakePredictor{err: errors.New("ollama unreachable")}
	uc := NewPredictGradeUseCase(models, predictions, training, predictor, &fakeMergeService{})

	prediction, err := uc.Predict(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	if prediction.AIPrediction != nil {
		t.Fatalf("expected no AI estimate, got %+v", prediction.AIPrediction)
	}
	if prediction.Grade != 90 || prediction.LetterGrade != "A-" {
		t.Fatalf("expected deterministic 90/A-, got %v/%s", prediction.Grade, prediction.LetterGrade)
	}
	if prediction.Reasoning != FallbackReasoning {
		t.Fatalf("fallback reasoning must be recorded verbatim, got %q", prediction.Reasoning)
	}

	// The regression side still runs: an empty training set is seeded first.
	if prediction.MLPrediction == nil || prediction.MLPrediction.Model != grading.RegressionModelName {
		t.Fatalf("expected a regression estimate, got %+v", prediction.MLPrediction)
	}
	if prediction.Combined != nil {
		t.Fatalf("combining requires both estimates, got %+v", prediction.Combined)
	}
	if len(training.rows) != len(grading.SampleTrainingRows()) {
		t.Fatalf("expected seed rows persisted, got %d", len(training.rows))
	}

	if len(predictions.created) != 1 {
		t.Fatalf("expected one persisted prediction, got %d", len(predictions.created))
	}
}

func TestPredictCombinesBothEstimates(t *testing.T) {
	models := storedCourseModel()
	predictions := &fakePredictionRepo{}
	predictor := &fakePredictor{ai: &domain.AIPrediction{
		Grade: "A-", NumericalGrade: 91, Reasoning: "consistent homework scores",
	}}
	uc := NewPredictGradeUseCase(models, predictions, &fakeTrainingRepo{}, predictor, &fakeMergeService{})

	prediction, err := uc.Predict(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	combined := prediction.Combined
	if combined == nil {
		t.Fatalf("expected a combined estimate")
	}
	if want := (combined.LLMGrade + combined.MLGrade) / 2; math.Abs(combined.Grade-want) > 1e-9 {
		t.Fatalf("combined grade must average the estimates: %+v", combined)
	}
	if prediction.Grade != combined.Grade {
		t.Fatalf("headline grade must follow the combined estimate, got %v vs %v",
			prediction.Grade, combined.Grade)
	}
	if prediction.LetterGrade != grading.LetterGrade(combined.Grade) {
		t.Fatalf("letter grade out of sync with the combined grade: %+v", prediction)
	}
}

func TestPredictRejectsImplausibleLLMEstimate(t *testing.T) {
	models := storedCourseModel()
	predictor := &fakePredictor{ai: &domain.AIPrediction{
		Grade: "A+", NumericalGrade: 150, Reasoning: "very optimistic",
	}}
	uc := NewPredictGradeUseCase(models, &fakePredictionRepo{}, &fakeTrainingRepo{}, predictor, &fakeMergeService{})

	prediction, err := uc.Predict(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if prediction.AIPrediction != nil {
		t.Fatalf("an out-of-range estimate must be dropped, got %+v", prediction.AIPrediction)
	}
	if prediction.Reasoning != FallbackReasoning {
		t.Fatalf("expected fallback reasoning, got %q", prediction.Reasoning)
	}
}

func TestPredictBuildsModelWhenNoneStored(t *testing.T) {
	merger := &fakeMergeService{model: &domain.CanonicalCourseModel{
		GradeWeights: []domain.GradeWeight{{Name: "Exams", Weight: 1.0}},
		CompletedAssignments: []domain.CompletedAssignment{
			{Name: "Midterm", Grade: domain.NumericGrade(75), MaxPoints: 100, Category: "Exams"},
		},
	}}
	uc := NewPredictGradeUseCase(&fakeModelRepo{}, &fakePredictionRepo{}, &fakeTrainingRepo{},
		&fakePredictor{err: errors.New("down")}, merger)

	prediction, err := uc.Predict(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if merger.calls != 1 || merger.lastOwner != "owner-1" {
		t.Fatalf("expected one on-demand merge, got %+v", merger)
	}
	if prediction.Grade != 75 {
		t.Fatalf("expected grade from the merged model, got %v", prediction.Grade)
	}
}

func TestCombineConfidence(t *testing.T) {
	cases := []struct {
		llm, ml float64
		want    domain.Confidence
	}{
		{90, 92, domain.ConfidenceHigh},
		{80, 90, domain.ConfidenceMedium},
		{60, 85, domain.ConfidenceLow},
	}
	for _, tc := range cases {
		got := combine(
			&domain.AIPrediction{Grade: "B", NumericalGrade: tc.llm, Reasoning: "r"},
			&domain.MLPrediction{Grade: tc.ml},
		)
		if got.Confidence != tc.want {
			t.Errorf("combine(%v, %v) confidence = %s, want %s", tc.llm, tc.ml, got.Confidence, tc.want)
		}
		if want := (tc.llm + tc.ml) / 2; got.Grade != want {
			t.Errorf("combine(%v, %v) grade = %v, want %v", tc.llm, tc.ml, got.Grade, want)
		}
	}
}

func TestAddTrainingRowValidation(t *testing.T) {
	training := &fakeTrainingRepo{}
	uc := NewPredictGradeUseCase(&fakeModelRepo{}, &fakePredictionRepo{}, training, nil, &fakeMergeService{})

	bad := []domain.TrainingRow{
		{GPA: 3.0, AssignmentWeight: 0.4, ExamWeight: 0.6, FinalGrade: 85},
		{PreviousGrades: []float64{80}, FinalGrade: 85},
		{PreviousGrades: []float64{80}, AssignmentWeight: 0.4, ExamWeight: 0.6, FinalGrade: 130},
	}
	for i, row := range bad {
		if err := uc.AddTrainingRow(context.Background(), row); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Errorf("row %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
	if len(training.rows) != 0 {
		t.Fatalf("invalid rows must not be stored, got %d", len(training.rows))
	}

	good := domain.TrainingRow{
		PreviousGrades: []float64{80, 85}, GPA: 3.1,
		AssignmentWeight: 0.4, ExamWeight: 0.6, FinalGrade: 84,
	}
	if err := uc.AddTrainingRow(context.Background(), good); err != nil {
		t.Fatalf("AddTrainingRow() error = %v", err)
	}
	if len(training.rows) != 1 {
		t.Fatalf("expected one stored row, got %d", len(training.rows))
	}
}
