package grading

import (
	"math"
	"testing"

	"github.com/academica/gradeflow/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateFullyGradedCourse(t *testing.T) {
	model := &domain.CanonicalCourseModel{
		GradeWeights: []domain.GradeWeight{
			{Name: "Homework", Weight: 0.4},
			{Name: "Exams", Weight: 0.6},
		},
		CompletedAssignments: []domain.CompletedAssignment{
			{Name: "Homework 1", Grade: domain.NumericGrade(90), MaxPoints: 100, Category: "Homework"},
			{Name: "Midterm", Grade: domain.NumericGrade(80), MaxPoints: 100, Category: "Exams"},
		},
	}

	calc := Calculate(model)
	if !almostEqual(calc.CurrentGrade, 84.0) {
		t.Fatalf("expected current grade 84.0, got %v", calc.CurrentGrade)
	}
	if calc.LetterGrade != "B" {
		t.Fatalf("expected letter B, got %s", calc.LetterGrade)
	}
	// Everything is graded, so the projections collapse onto the current grade.
	if !almostEqual(calc.MaxPossibleGrade, 84.0) || !almostEqual(calc.MinPossibleGrade, 84.0) {
		t.Fatalf("expected projections 84.0/84.0, got %v/%v", calc.MaxPossibleGrade, calc.MinPossibleGrade)
	}
}

func TestCalculatePartiallyCoveredCourse(t *testing.T) {
	model := &domain.CanonicalCourseModel{
		GradeWeights: []domain.GradeWeight{
			{Name: "Homework", Weight: 0.4},
			{Name: "Exams", Weight: 0.6},
		},
		CompletedAssignments: []domain.CompletedAssignment{
			{Name: "Homework 1", Grade: domain.NumericGrade(90), MaxPoints: 100, Category: "Homework"},
		},
		RemainingAssignments: []domain.RemainingAssignment{
			{Name: "Final Exam", Category: "Exams"},
		},
	}

	calc := Calculate(model)
	if !almostEqual(calc.CurrentGrade, 90.0) {
		t.Fatalf("expected current grade 90.0, got %v", calc.CurrentGrade)
	}
	if !almostEqual(calc.MaxPossibleGrade, 96.0) {
		t.Fatalf("expected best case 96.0, got %v", calc.MaxPossibleGrade)
	}
	if !almostEqual(calc.MinPossibleGrade, 36.0) {
		t.Fatalf("expected worst case 36.0, got %v", calc.MinPossibleGrade)
	}

	homework := calc.CategorizedGrades["Homework"]
	if homework.Average == nil || !almostEqual(*homework.Average, 90.0) {
		t.Fatalf("expected homework average 90.0, got %+v", homework)
	}
	exams := calc.CategorizedGrades["Exams"]
	if exams.Average != nil || exams.Remaining != 1 {
		t.Fatalf("expected ungraded exams with 1 remaining, got %+v", exams)
	}
}

func TestCalculateIsTotalOnEmptyModel(t *testing.T) {
	calc := Calculate(&domain.CanonicalCourseModel{})
	if calc.CurrentGrade != 0 {
		t.Fatalf("expected current 0 on empty model, got %v", calc.CurrentGrade)
	}
	if calc.MaxPossibleGrade != 100 || calc.MinPossibleGrade != 0 {
		t.Fatalf("expected default projections 100/0, got %v/%v", calc.MaxPossibleGrade, calc.MinPossibleGrade)
	}
	if calc.LetterGrade != "F" {
		t.Fatalf("expected letter F, got %s", calc.LetterGrade)
	}
	if len(calc.Analysis) == 0 {
		t.Fatalf("expected analysis lines even on empty model")
	}
}

func TestCalculateExcludesDroppedFromAverage(t *testing.T) {
	model := &domain.CanonicalCourseModel{
		GradeWeights: []domain.GradeWeight{{Name: "Homework", Weight: 1.0}},
		CompletedAssignments: []domain.CompletedAssignment{
			{Name: "Homework 1", Grade: domain.NumericGrade(80), MaxPoints: 100, Category: "Homework"},
			{Name: "Homework 2", Grade: domain.NumericGrade(80), MaxPoints: 100, Category: "Homework"},
			{Name: "Homework 3", Grade: domain.DroppedGrade(), MaxPoints: 100, Category: "Homework"},
		},
	}

	calc := Calculate(model)
	homework := calc.CategorizedGrades["Homework"]
	if homework.Completed != 3 {
		t.Fatalf("dropped work still counts as completed, got %d", homework.Completed)
	}
	if homework.Average == nil || !almostEqual(*homework.Average, 80.0) {
		t.Fatalf("dropped must not pull the average down, got %+v", homework.Average)
	}
	if !almostEqual(calc.CurrentGrade, 80.0) {
		t.Fatalf("expected current 80.0, got %v", calc.CurrentGrade)
	}
}

func TestCalculateBoundsInvariant(t *testing.T) {
	model := &domain.CanonicalCourseModel{
		GradeWeights: []domain.GradeWeight{
			{Name: "Homework", Weight: 0.3},
			{Name: "Quizzes", Weight: 0.2},
			{Name: "Exams", Weight: 0.5},
		},
		CompletedAssignments: []domain.CompletedAssignment{
			{Name: "Homework 1", Grade: domain.NumericGrade(72), MaxPoints: 100, Category: "Homework"},
			{Name: "Quiz 1", Grade: domain.NumericGrade(18), MaxPoints: 20, Category: "Quizzes"},
		},
		RemainingAssignments: []domain.RemainingAssignment{
			{Name: "Homework 2", Category: "Homework"},
			{Name: "Final", Category: "Exams"},
		},
	}

	calc := Calculate(model)
	if calc.MinPossibleGrade > calc.CurrentGrade || calc.CurrentGrade > calc.MaxPossibleGrade {
		t.Fatalf("bounds invariant violated: min=%v current=%v max=%v",
			calc.MinPossibleGrade, calc.CurrentGrade, calc.MaxPossibleGrade)
	}
	if calc.MinPossibleGrade < 0 || calc.MaxPossibleGrade > 100 {
		t.Fatalf("projections escaped [0,100]: %v/%v", calc.MinPossibleGrade, calc.MaxPossibleGrade)
	}
}

func TestLetterGradeBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, "A"},
		{93, "A"},
		{92.99, "A-"},
		{90, "A-"},
		{87, "B+"},
		{83, "B"},
		{80, "B-"},
		{77, "C+"},
		{73, "C"},
		{70, "C-"},
		{67, "D+"},
		{63, "D"},
		{60, "D-"},
		{59.99, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		if got := LetterGrade(tc.score); got != tc.want {
			t.Errorf("LetterGrade(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
