package domain

import "time"

// CategoryStats is the per-category breakdown of a grade calculation.
// Average is nil while the category has no graded work.
type CategoryStats struct {
	Completed   int      `json:"completed"`
	Remaining   int      `json:"remaining"`
	TotalPoints float64  `json:"total_points"`
	MaxPoints   float64  `json:"max_points"`
	Average     *float64 `json:"average"`
	Weight      float64  `json:"weight"`
}

// GradeCalculation is derived on demand from a CanonicalCourseModel and is
// persisted only as an audit snapshot alongside a Prediction.
type GradeCalculation struct {
	CurrentGrade      float64                  `json:"current_grade"`
	MaxPossibleGrade  float64                  `json:"max_possible_grade"`
	MinPossibleGrade  float64                  `json:"min_possible_grade"`
	LetterGrade       string                   `json:"letter_grade"`
	CategorizedGrades map[string]CategoryStats `json:"categorized_grades"`
	Analysis          []string                 `json:"analysis"`
}

// AIPrediction is the validated shape of the LLM's final-grade estimate.
type AIPrediction struct {
	Grade          string  `json:"grade"`
	NumericalGrade float64 `json:"numerical_grade"`
	Reasoning      string  `json:"reasoning"`
}

// MLPrediction is the linear-regression estimate.
type MLPrediction struct {
	Grade float64 `json:"grade"`
	Model string  `json:"model"`
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CombinedPrediction averages the LLM and regression estimates; confidence
// reflects how closely the two models agree.
type CombinedPrediction struct {
	Grade      float64    `json:"grade"`
	LLMGrade   float64    `json:"llm_grade"`
	MLGrade    float64    `json:"ml_grade"`
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

// Prediction is immutable once created. It carries the deterministic
// calculation and the course model snapshot used to produce it.
type Prediction struct {
	ID                string                   `json:"id"`
	OwnerID           string                   `json:"owner_id"`
	Grade             float64                  `json:"grade"`
	LetterGrade       string                   `json:"letter_grade"`
	Reasoning         string                   `json:"reasoning"`
	AIPrediction      *AIPrediction            `json:"ai_prediction,omitempty"`
	MLPrediction      *MLPrediction            `json:"ml_prediction,omitempty"`
	Combined          *CombinedPrediction      `json:"combined_prediction,omitempty"`
	CategorizedGrades map[string]CategoryStats `json:"categorized_grades"`
	Calculation       GradeCalculation         `json:"calculation"`
	CourseModel       CanonicalCourseModel     `json:"course_model"`
	CreatedAt         time.Time                `json:"created_at"`
}

// TrainingRow is one observation for the regression predictor.
type TrainingRow struct {
	PreviousGrades   []float64 `json:"previous_grades"`
	GPA              float64   `json:"gpa"`
	AssignmentWeight float64   `json:"assignment_weight"`
	ExamWeight       float64   `json:"exam_weight"`
	FinalGrade       float64   `json:"final_grade"`
}
