package normalize

import (
	"fmt"
	"strings"

	"github.com/academica/gradeflow/internal/core/domain"
)

// ParseModel coerces an LLM merge response into a CanonicalCourseModel.
// Weights are rescaled but the result is otherwise unchecked; callers run
// Validate and fall back to the deterministic merge when it fails.
func ParseModel(raw string) (*domain.CanonicalCourseModel, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	model := &domain.CanonicalCourseModel{
		CompletedAssignments: []domain.CompletedAssignment{},
		RemainingAssignments: []domain.RemainingAssignment{},
		DueDates:             []domain.DueDate{},
	}

	if v, ok := firstKey(obj, "course"); ok {
		course := asObject(v)
		model.Course.Name = asString(course["name"])
		model.Course.Instructor = asString(course["instructor"])
		if hours, ok := asFloat(course["credit_hours"]); ok {
			model.Course.CreditHours = hours
		}
	}
	if model.Course.Name == "" {
		model.Course.Name = "Unknown"
	}
	if model.Course.Instructor == "" {
		model.Course.Instructor = "Unknown"
	}

	if v, ok := firstKey(obj, "grade_weights", "gradeWeights", "weights"); ok {
		for _, entry := range asSlice(v) {
			w := asObject(entry)
			name := asString(w["name"])
			weight, okWeight := asFloat(w["weight"])
			if name == "" || !okWeight {
				continue
			}
			model.GradeWeights = append(model.GradeWeights, domain.GradeWeight{Name: name, Weight: weight})
		}
	}
	model.GradeWeights = RescaleWeights(model.GradeWeights)
	if len(model.GradeWeights) == 0 {
		return nil, fmt.Errorf("merge response has no usable grade weights")
	}

	if v, ok := firstKey(obj, "completed_assignments", "completedAssignments"); ok {
		for _, entry := range asSlice(v) {
			a := asObject(entry)
			name := asString(a["name"])
			if name == "" {
				continue
			}
			completed := domain.CompletedAssignment{
				Name:      name,
				Category:  asString(a["category"]),
				MaxPoints: 100,
			}
			if maxPoints, ok := asFloat(a["max_points"]); ok && maxPoints > 0 {
				completed.MaxPoints = maxPoints
			}
			if gradeStr := asString(a["grade"]); strings.EqualFold(gradeStr, "dropped") {
				completed.Grade = domain.DroppedGrade()
			} else if grade, ok := asFloat(a["grade"]); ok {
				completed.Grade = domain.NumericGrade(grade)
			} else {
				continue
			}
			model.CompletedAssignments = append(model.CompletedAssignments, completed)
		}
	}

	if v, ok := firstKey(obj, "remaining_assignments", "remainingAssignments", "incomplete_assignments"); ok {
		for _, entry := range asSlice(v) {
			a := asObject(entry)
			name := asString(a["name"])
			if name == "" {
				continue
			}
			model.RemainingAssignments = append(model.RemainingAssignments, domain.RemainingAssignment{
				Name:     name,
				Category: asString(a["category"]),
				DueDate:  asString(a["due_date"]),
			})
		}
	}

	if v, ok := firstKey(obj, "due_dates", "dueDates"); ok {
		for _, entry := range asSlice(v) {
			d := asObject(entry)
			assignment := asString(d["assignment"])
			due := asString(d["due_date"])
			if assignment != "" && due != "" {
				model.DueDates = append(model.DueDates, domain.DueDate{Assignment: assignment, Due: due})
			}
		}
	}

	if gpa, ok := asFloat(obj["gpa"]); ok {
		model.GPA = gpa
	}
	if v, ok := firstKey(obj, "academic_history", "academicHistory"); ok {
		history := asObject(v)
		if courses, ok := firstKey(history, "relevant_courses", "relevantCourses", "courses"); ok {
			for _, entry := range asSlice(courses) {
				c := asObject(entry)
				name := asString(c["name"])
				if name == "" {
					continue
				}
				past := domain.PastCourse{Name: name, Grade: asString(c["grade"])}
				if hours, ok := asFloat(c["credit_hours"]); ok {
					past.CreditHours = hours
				}
				model.AcademicHistory.RelevantCourses = append(model.AcademicHistory.RelevantCourses, past)
			}
		}
	}
	if model.AcademicHistory.RelevantCourses == nil {
		model.AcademicHistory.RelevantCourses = []domain.PastCourse{}
	}

	return model, nil
}
