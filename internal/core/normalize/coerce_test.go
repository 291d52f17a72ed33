package normalize

import (
	"math"
	"testing"

	"github.com/academica/gradeflow/internal/core/domain"
)

func TestParseSyllabusNestedShape(t *testing.T) {
	raw := `{
		"course": {"name": "Linear Algebra", "instructor": "Dr. Chen", "credit_hours": 4},
		"grade_weights": [
			{"name": "Homework", "weight": 40},
			{"name": "Exams", "weight": 60}
		],
		"assignments": [
			{"name": "Problem Set 1", "category": "Homework", "due_date": "2026-09-12"},
			"Final Exam"
		],
		"due_dates": [{"assignment": "Final Exam", "due_date": "2026-12-15"}]
	}`

	data, err := ParseSyllabus(raw)
	if err != nil {
		t.Fatalf("ParseSyllabus() error = %v", err)
	}
	if data.Course.Name != "Linear Algebra" || data.Course.Instructor != "Dr. Chen" || data.Course.CreditHours != 4 {
		t.Fatalf("course info not coerced: %+v", data.Course)
	}
	// Percent weights are rescaled to decimals.
	if len(data.GradeWeights) != 2 ||
		math.Abs(data.GradeWeights[0].Weight-0.4) > 1e-9 ||
		math.Abs(data.GradeWeights[1].Weight-0.6) > 1e-9 {
		t.Fatalf("weights not rescaled: %+v", data.GradeWeights)
	}
	if len(data.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %+v", data.Assignments)
	}
	// Bare-string assignments pick up their due date from the due_dates list.
	if data.Assignments[1].Name != "Final Exam" || data.Assignments[1].DueDate != "2026-12-15" {
		t.Fatalf("due date not joined onto assignment: %+v", data.Assignments[1])
	}
}

func TestParseSyllabusFlatShape(t *testing.T) {
	raw := `{"course_name": "Physics I", "instructor": "Prof. Okafor",
		"weights": [{"name": "Labs", "weight": "25%"}, {"name": "Exams", "weight": "75%"}]}`

	data, err := ParseSyllabus(raw)
	if err != nil {
		t.Fatalf("ParseSyllabus() error = %v", err)
	}
	if data.Course.Name != "Physics I" {
		t.Fatalf("flat course name not read: %+v", data.Course)
	}
	if math.Abs(data.GradeWeights[0].Weight-0.25) > 1e-9 {
		t.Fatalf("string percent weight not coerced: %+v", data.GradeWeights)
	}
}

func TestParseSyllabusRequiresWeights(t *testing.T) {
	if _, err := ParseSyllabus(`{"course": {"name": "Empty"}}`); err == nil {
		t.Fatalf("expected error when no grade weights present")
	}
}

func TestParseSyllabusDefaultsUnknownCourse(t *testing.T) {
	data, err := ParseSyllabus(`{"grade_weights": [{"name": "Exams", "weight": 1.0}]}`)
	if err != nil {
		t.Fatalf("ParseSyllabus() error = %v", err)
	}
	if data.Course.Name != "Unknown" || data.Course.Instructor != "Unknown" {
		t.Fatalf("missing course info should default to Unknown: %+v", data.Course)
	}
}

func TestParseGrades(t *testing.T) {
	raw := `{
		"completed_assignments": [
			{"name": "Homework 1", "grade": 90, "max_points": 100, "category": "Homework"},
			{"name": "Homework 2", "grade": "Dropped", "category": "Homework"},
			{"name": "Quiz 1", "grade": "18", "max_points": 20, "category": "Quizzes"},
			{"name": "Mystery", "grade": "ungraded"}
		],
		"incomplete_assignments": [{"name": "Final Exam", "category": "Exams"}],
		"current_grade": "88.5"
	}`

	data, err := ParseGrades(raw)
	if err != nil {
		t.Fatalf("ParseGrades() error = %v", err)
	}
	if len(data.CompletedAssignments) != 3 {
		t.Fatalf("unparseable grades must be skipped, got %+v", data.CompletedAssignments)
	}
	if !data.CompletedAssignments[1].Grade.Dropped {
		t.Fatalf("expected dropped marker on Homework 2")
	}
	// Missing max_points defaults to 100.
	if data.CompletedAssignments[1].MaxPoints != 100 {
		t.Fatalf("expected default max points 100, got %v", data.CompletedAssignments[1].MaxPoints)
	}
	if data.CompletedAssignments[2].Grade.Value != 18 || data.CompletedAssignments[2].MaxPoints != 20 {
		t.Fatalf("string grade not coerced: %+v", data.CompletedAssignments[2])
	}
	if len(data.IncompleteAssignments) != 1 || data.CurrentGrade != "88.5" {
		t.Fatalf("remaining work or current grade not read: %+v", data)
	}
}

func TestParseGradesRequiresAssignments(t *testing.T) {
	if _, err := ParseGrades(`{"completed_assignments": []}`); err == nil {
		t.Fatalf("expected error when response has no assignments")
	}
}

func TestParseTranscript(t *testing.T) {
	raw := `{
		"gpa": "3.6",
		"academic_history": {
			"relevant_courses": [
				{"name": "Calculus I", "grade": "A-", "credit_hours": 4},
				{"name": "", "grade": "B"}
			]
		}
	}`

	data, err := ParseTranscript(raw)
	if err != nil {
		t.Fatalf("ParseTranscript() error = %v", err)
	}
	if data.GPA != 3.6 {
		t.Fatalf("expected GPA 3.6, got %v", data.GPA)
	}
	if len(data.AcademicHistory.RelevantCourses) != 1 {
		t.Fatalf("nameless courses must be skipped: %+v", data.AcademicHistory.RelevantCourses)
	}
	if data.AcademicHistory.RelevantCourses[0].Grade != "A-" {
		t.Fatalf("course grade not read: %+v", data.AcademicHistory.RelevantCourses[0])
	}
}

func TestParseTranscriptFlatCourses(t *testing.T) {
	data, err := ParseTranscript(`{"courses": [{"name": "Statistics", "grade": "B+"}]}`)
	if err != nil {
		t.Fatalf("ParseTranscript() error = %v", err)
	}
	if len(data.AcademicHistory.RelevantCourses) != 1 {
		t.Fatalf("flat course list not read: %+v", data)
	}
}

func TestParseTranscriptRequiresContent(t *testing.T) {
	if _, err := ParseTranscript(`{"notes": "nothing useful"}`); err == nil {
		t.Fatalf("expected error when neither GPA nor history present")
	}
}

func TestRescaleWeights(t *testing.T) {
	out := RescaleWeights([]domain.GradeWeight{
		{Name: " Homework ", Weight: 30},
		{Name: "Exams", Weight: 45},
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 weights, got %+v", out)
	}
	if out[0].Name != "Homework" {
		t.Fatalf("names should be trimmed, got %q", out[0].Name)
	}
	if math.Abs(out[0].Weight-0.4) > 1e-9 || math.Abs(out[1].Weight-0.6) > 1e-9 {
		t.Fatalf("expected 75%% total rescaled to 0.4/0.6, got %+v", out)
	}

	if out := RescaleWeights([]domain.GradeWeight{{Name: "Zero", Weight: 0}}); out != nil {
		t.Fatalf("all-zero weights are unsalvageable, got %+v", out)
	}
}
