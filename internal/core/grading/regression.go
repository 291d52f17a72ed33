package grading

import (
	"fmt"
	"math"
	"strings"

	"github.com/academica/gradeflow/internal/core/domain"
)

// RegressionModelName tags ML predictions produced by this predictor.
const RegressionModelName = "linear_regression"

// Regression is an ordinary-least-squares model over the features
// [avgPreviousGrade, gpa, assignmentWeight, examWeight] plus an intercept.
type Regression struct {
	coef []float64 // intercept first
}

// SampleTrainingRows seeds the training set when none exists yet.
func SampleTrainingRows() []domain.TrainingRow {
	return []domain.TrainingRow{
		{PreviousGrades: []float64{85, 90, 92}, GPA: 3.6, AssignmentWeight: 0.3, ExamWeight: 0.7, FinalGrade: 90},
		{PreviousGrades: []float64{70, 75, 78}, GPA: 2.8, AssignmentWeight: 0.5, ExamWeight: 0.5, FinalGrade: 80},
		{PreviousGrades: []float64{88, 90, 85}, GPA: 3.5, AssignmentWeight: 0.4, ExamWeight: 0.6, FinalGrade: 88},
	}
}

func featuresOf(row domain.TrainingRow) []float64 {
	avg := 0.0
	if len(row.PreviousGrades) > 0 {
		for _, g := range row.PreviousGrades {
			avg += g
		}
		avg /= float64(len(row.PreviousGrades))
	}
	return []float64{avg, row.GPA, row.AssignmentWeight, row.ExamWeight}
}

// FitRegression trains on the given rows via the normal equations.
func FitRegression(rows []domain.TrainingRow) (*Regression, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("need at least 2 training rows, have %d", len(rows))
	}

	const dim = 5 // intercept + 4 features
	xtx := make([][]float64, dim)
	for i := range xtx {
		xtx[i] = make([]float64, dim)
	}
	xty := make([]float64, dim)

	for _, row := range rows {
		x := append([]float64{1}, featuresOf(row)...)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				xtx[i][j] += x[i] * x[j]
			}
			xty[i] += x[i] * row.FinalGrade
		}
	}

	// Ridge-style jitter keeps the system solvable when features are
	// collinear (e.g. assignmentWeight + examWeight == 1 on every row).
	for i := 1; i < dim; i++ {
		xtx[i][i] += 1e-8
	}

	coef, err := solveLinearSystem(xtx, xty)
	if err != nil {
		return nil, err
	}
	return &Regression{coef: coef}, nil
}

// Predict estimates the final grade for a training-shaped observation,
// clamped into [0, 100].
func (r *Regression) Predict(row domain.TrainingRow) float64 {
	x := append([]float64{1}, featuresOf(row)...)
	sum := 0.0
	for i, c := range r.coef {
		sum += c * x[i]
	}
	return math.Max(0, math.Min(100, sum))
}

// ObservationFromModel maps a course model onto the regression feature space:
// completed assignment percentages stand in for previous grades, and the
// weight mass of exam-like categories becomes the exam weight.
func ObservationFromModel(model *domain.CanonicalCourseModel) domain.TrainingRow {
	row := domain.TrainingRow{GPA: model.GPA}

	for _, a := range model.CompletedAssignments {
		if a.Grade.Dropped {
			continue
		}
		maxPoints := a.MaxPoints
		if maxPoints <= 0 {
			maxPoints = 100
		}
		row.PreviousGrades = append(row.PreviousGrades, a.Grade.Value/maxPoints*100)
	}

	for _, w := range model.GradeWeights {
		name := strings.ToLower(w.Name)
		if strings.Contains(name, "exam") || strings.Contains(name, "test") ||
			strings.Contains(name, "final") || strings.Contains(name, "midterm") {
			row.ExamWeight += w.Weight
		}
	}
	row.AssignmentWeight = math.Max(0, 1.0-row.ExamWeight)
	return row
}

// solveLinearSystem performs Gaussian elimination with partial pivoting.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
