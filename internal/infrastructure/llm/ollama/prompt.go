package ollama

import (
	"fmt"
	"strings"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/merge"
)

const maxSnippet = 8000

func snippet(text string) string {
	if len(text) > maxSnippet {
		return text[:maxSnippet]
	}
	return text
}

const syllabusSystemPrompt = `You extract course information from syllabus text.
Return a strict JSON object with exactly these keys:
{
  "course": {"name": "...", "instructor": "...", "credit_hours": 3},
  "grade_weights": [{"name": "...", "weight": 0.4}],
  "assignments": [{"name": "...", "category": "...", "due_date": "..."}]
}
Weights are decimals between 0 and 1 and must sum to 1.
No markdown, no extra keys, no commentary.`

func buildSyllabusPrompt(text string) (string, string) {
	return syllabusSystemPrompt, "Syllabus text:\n" + snippet(text)
}

const gradesSystemPrompt = `You extract a student's scores from a grade report.
Return a strict JSON object with exactly these keys:
{
  "completed_assignments": [{"name": "...", "grade": 90, "max_points": 100, "category": "..."}],
  "incomplete_assignments": [{"name": "...", "category": "...", "due_date": "..."}],
  "current_grade": "..."
}
A grade may be the string "Dropped" when the assignment was dropped.
No markdown, no extra keys, no commentary.`

func buildGradesPrompt(text string, categories []string) (string, string) {
	user := &strings.Builder{}
	if len(categories) > 0 {
		fmt.Fprintf(user, "Known grading categories: %s\nAssign each assignment to one of them.\n\n", strings.Join(categories, ", "))
	}
	user.WriteString("Grade report text:\n")
	user.WriteString(snippet(text))
	return gradesSystemPrompt, user.String()
}

const transcriptSystemPrompt = `You extract academic history from transcript text.
Return a strict JSON object with exactly these keys:
{
  "gpa": 3.5,
  "academic_history": {"relevant_courses": [{"name": "...", "grade": "B+", "credit_hours": 3}]}
}
No markdown, no extra keys, no commentary.`

func buildTranscriptPrompt(text string) (string, string) {
	return transcriptSystemPrompt, "Transcript text:\n" + snippet(text)
}

const mergeSystemPrompt = `You reconcile structured academic documents into one course model.
Rules:
- grade_weights come from the syllabus when present; weights sum to 1.
- An assignment completed in the grade report is completed, even if the syllabus lists it as upcoming.
- remaining_assignments are syllabus assignments without a grade plus explicit incomplete entries.
- Every assignment category must be one of the grade_weights names.
Return a strict JSON object with exactly these keys:
{
  "course": {"name": "...", "instructor": "...", "credit_hours": 3},
  "grade_weights": [{"name": "...", "weight": 0.4}],
  "completed_assignments": [{"name": "...", "grade": 90, "max_points": 100, "category": "..."}],
  "remaining_assignments": [{"name": "...", "category": "...", "due_date": "..."}],
  "due_dates": [{"assignment": "...", "due_date": "..."}],
  "gpa": 3.5,
  "academic_history": {"relevant_courses": []}
}
No markdown, no extra keys, no commentary.`

func buildMergePrompt(in merge.Inputs, encode func(any) string) (string, string) {
	user := &strings.Builder{}
	if in.Syllabus != nil {
		fmt.Fprintf(user, "Syllabus data:\n%s\n\n", encode(in.Syllabus))
	}
	if in.Grades != nil {
		fmt.Fprintf(user, "Grade report data:\n%s\n\n", encode(in.Grades))
	}
	if in.Transcript != nil {
		fmt.Fprintf(user, "Transcript data:\n%s\n\n", encode(in.Transcript))
	}
	return mergeSystemPrompt, user.String()
}

const predictSystemPrompt = `You are a concise academic advisor.
Given a student's course standing, predict their final grade.
Return a strict JSON object with exactly three keys:
"grade" (a letter grade), "numerical_grade" (a number from 0 to 100),
"reasoning" (a short explanation). Do not include extra text.`

func buildPredictPrompt(model *domain.CanonicalCourseModel, calc domain.GradeCalculation) (string, string) {
	user := &strings.Builder{}

	fmt.Fprintf(user, "Course: %s\n", model.Course.Name)
	fmt.Fprintf(user, "Instructor: %s\n", model.Course.Instructor)
	if model.Course.CreditHours > 0 {
		fmt.Fprintf(user, "Credit hours: %g\n", model.Course.CreditHours)
	}

	user.WriteString("Grade weights:\n")
	for _, w := range model.GradeWeights {
		fmt.Fprintf(user, "  - %s: %.0f%%\n", w.Name, w.Weight*100)
	}

	fmt.Fprintf(user, "Current grade: %.1f%% (%s)\n", calc.CurrentGrade, calc.LetterGrade)
	fmt.Fprintf(user, "Best case: %.1f%%, worst case: %.1f%%\n", calc.MaxPossibleGrade, calc.MinPossibleGrade)

	user.WriteString("Category breakdown:\n")
	for name, s := range calc.CategorizedGrades {
		if s.Average != nil {
			fmt.Fprintf(user, "  - %s: %.1f%% average, %d completed, %d remaining\n", name, *s.Average, s.Completed, s.Remaining)
		} else {
			fmt.Fprintf(user, "  - %s: no graded work, %d remaining\n", name, s.Remaining)
		}
	}

	if len(model.RemainingAssignments) > 0 {
		names := make([]string, 0, len(model.RemainingAssignments))
		for _, a := range model.RemainingAssignments {
			names = append(names, a.Name)
		}
		fmt.Fprintf(user, "Remaining assignments: %s\n", strings.Join(names, ", "))
	}
	for _, d := range model.DueDates {
		fmt.Fprintf(user, "  - %s due on %s\n", d.Assignment, d.Due)
	}

	if model.GPA > 0 {
		fmt.Fprintf(user, "GPA: %.2f\n", model.GPA)
	}
	if len(model.AcademicHistory.RelevantCourses) > 0 {
		user.WriteString("Relevant prior courses:\n")
		for _, c := range model.AcademicHistory.RelevantCourses {
			fmt.Fprintf(user, "  - %s: %s\n", c.Name, c.Grade)
		}
	}

	return predictSystemPrompt, user.String()
}
