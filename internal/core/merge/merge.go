// Package merge reconciles the per-type normalized payloads into one
// CanonicalCourseModel. The deterministic rules here are the fallback behind
// the LLM-assisted merge and must always succeed on any input combination.
package merge

import (
	"strings"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/normalize"
)

// Inputs are the per-type payloads; any of them may be nil.
type Inputs struct {
	Syllabus   *domain.SyllabusData
	Grades     *domain.GradesData
	Transcript *domain.TranscriptData
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Merge builds a canonical model from whatever sources are present.
// Reconciliation order: weights from syllabus (else inferred from grades),
// grades win assignment conflicts, remaining = syllabus minus seen names plus
// explicit incompletes, due dates deduplicated first-occurrence-wins.
func Merge(in Inputs, matcher CategoryMatcher) *domain.CanonicalCourseModel {
	if matcher == nil {
		matcher = KeywordMatcher
	}

	model := &domain.CanonicalCourseModel{
		Course:               domain.CourseInfo{Name: "Unknown", Instructor: "Unknown"},
		CompletedAssignments: []domain.CompletedAssignment{},
		RemainingAssignments: []domain.RemainingAssignment{},
		DueDates:             []domain.DueDate{},
	}

	if in.Syllabus != nil {
		model.Course = in.Syllabus.Course
		if model.Course.Name == "" {
			model.Course.Name = "Unknown"
		}
		if model.Course.Instructor == "" {
			model.Course.Instructor = "Unknown"
		}
		model.GradeWeights = normalize.RescaleWeights(in.Syllabus.GradeWeights)
	}
	if len(model.GradeWeights) == 0 && in.Grades != nil {
		model.GradeWeights = inferWeightsFromGrades(in.Grades)
	}
	if len(model.GradeWeights) == 0 {
		model.GradeWeights = normalize.DefaultWeights()
	}

	categories := make([]string, 0, len(model.GradeWeights))
	declared := make(map[string]string, len(model.GradeWeights))
	for _, w := range model.GradeWeights {
		categories = append(categories, w.Name)
		declared[normalizeName(w.Name)] = w.Name
	}

	categorize := func(name, hint string) string {
		if canonical, ok := declared[normalizeName(hint)]; ok && hint != "" {
			return canonical
		}
		category := matcher(name, categories)
		if canonical, ok := declared[normalizeName(category)]; ok {
			return canonical
		}
		// A matcher result outside the declared scheme would break the
		// category invariant; rebucket into the first declared category.
		return categories[0]
	}

	// Grades data wins on conflict: anything completed there is completed,
	// no matter what the syllabus still lists.
	seen := map[string]bool{}
	if in.Grades != nil {
		for _, a := range in.Grades.CompletedAssignments {
			completed := a
			if completed.MaxPoints <= 0 {
				completed.MaxPoints = 100
			}
			completed.Category = categorize(a.Name, a.Category)
			model.CompletedAssignments = append(model.CompletedAssignments, completed)
			seen[normalizeName(a.Name)] = true
		}
		for _, a := range in.Grades.IncompleteAssignments {
			if seen[normalizeName(a.Name)] {
				continue
			}
			seen[normalizeName(a.Name)] = true
			model.RemainingAssignments = append(model.RemainingAssignments, domain.RemainingAssignment{
				Name:     a.Name,
				Category: categorize(a.Name, a.Category),
				DueDate:  a.DueDate,
			})
		}
	}

	if in.Syllabus != nil {
		for _, a := range in.Syllabus.Assignments {
			if seen[normalizeName(a.Name)] {
				continue
			}
			seen[normalizeName(a.Name)] = true
			model.RemainingAssignments = append(model.RemainingAssignments, domain.RemainingAssignment{
				Name:     a.Name,
				Category: categorize(a.Name, a.Category),
				DueDate:  a.DueDate,
			})
		}
	}

	model.DueDates = collectDueDates(in)

	if in.Transcript != nil {
		model.GPA = in.Transcript.GPA
		model.AcademicHistory = in.Transcript.AcademicHistory
	}
	if model.AcademicHistory.RelevantCourses == nil {
		model.AcademicHistory.RelevantCourses = []domain.PastCourse{}
	}

	return model
}

// inferWeightsFromGrades assigns equal weights to the distinct categories
// seen in the grades document.
func inferWeightsFromGrades(grades *domain.GradesData) []domain.GradeWeight {
	var names []string
	seen := map[string]bool{}
	collect := func(category string) {
		category = strings.TrimSpace(category)
		if category == "" || seen[normalizeName(category)] {
			return
		}
		seen[normalizeName(category)] = true
		names = append(names, category)
	}
	for _, a := range grades.CompletedAssignments {
		collect(a.Category)
	}
	for _, a := range grades.IncompleteAssignments {
		collect(a.Category)
	}
	if len(names) == 0 {
		return nil
	}

	weights := make([]domain.GradeWeight, len(names))
	for i, name := range names {
		weights[i] = domain.GradeWeight{Name: name, Weight: 1.0}
	}
	return normalize.RescaleWeights(weights)
}

// collectDueDates unions syllabus due dates with grades-document incomplete
// due dates, keyed by normalized assignment name, first occurrence wins.
func collectDueDates(in Inputs) []domain.DueDate {
	out := []domain.DueDate{}
	seen := map[string]bool{}
	add := func(assignment, due string) {
		key := normalizeName(assignment)
		if assignment == "" || due == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, domain.DueDate{Assignment: assignment, Due: due})
	}

	if in.Syllabus != nil {
		for _, a := range in.Syllabus.Assignments {
			add(a.Name, a.DueDate)
		}
	}
	if in.Grades != nil {
		for _, a := range in.Grades.IncompleteAssignments {
			add(a.Name, a.DueDate)
		}
	}
	return out
}
