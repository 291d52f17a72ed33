package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/academica/gradeflow/internal/core/domain"
)

// RescaleWeights converts percentages to decimals and rescales the set so it
// sums to 1.0 within domain.WeightEpsilon. Weights that cannot be salvaged
// (all zero) are left for the caller's fallback.
func RescaleWeights(weights []domain.GradeWeight) []domain.GradeWeight {
	out := make([]domain.GradeWeight, 0, len(weights))
	sum := 0.0
	for _, w := range weights {
		weight := w.Weight
		if weight > 1.0 {
			weight /= 100.0
		}
		if weight < 0 {
			continue
		}
		out = append(out, domain.GradeWeight{Name: strings.TrimSpace(w.Name), Weight: weight})
		sum += weight
	}
	if sum <= 0 {
		return nil
	}
	if math.Abs(sum-1.0) > domain.WeightEpsilon {
		scale := 1.0 / sum
		for i := range out {
			out[i].Weight *= scale
		}
	}
	return out
}

// ParseSyllabus coerces an LLM response into SyllabusData. It tolerates both
// the nested {course:{...}} shape and the flat course_name/instructor shape.
func ParseSyllabus(raw string) (*domain.SyllabusData, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	data := &domain.SyllabusData{}

	if v, ok := firstKey(obj, "course"); ok {
		course := asObject(v)
		data.Course.Name = asString(course["name"])
		data.Course.Instructor = asString(course["instructor"])
		if hours, ok := asFloat(course["credit_hours"]); ok {
			data.Course.CreditHours = hours
		}
	} else {
		data.Course.Name = asString(obj["course_name"])
		data.Course.Instructor = asString(obj["instructor"])
		if hours, ok := asFloat(obj["credit_hours"]); ok {
			data.Course.CreditHours = hours
		}
	}
	if data.Course.Name == "" {
		data.Course.Name = "Unknown"
	}
	if data.Course.Instructor == "" {
		data.Course.Instructor = "Unknown"
	}

	if v, ok := firstKey(obj, "grade_weights", "gradeWeights", "weights"); ok {
		for _, entry := range asSlice(v) {
			w := asObject(entry)
			name := asString(w["name"])
			weight, okWeight := asFloat(w["weight"])
			if name == "" || !okWeight {
				continue
			}
			data.GradeWeights = append(data.GradeWeights, domain.GradeWeight{Name: name, Weight: weight})
		}
	}
	data.GradeWeights = RescaleWeights(data.GradeWeights)
	if len(data.GradeWeights) == 0 {
		return nil, fmt.Errorf("syllabus response has no usable grade weights")
	}

	dueByAssignment := map[string]string{}
	if v, ok := firstKey(obj, "due_dates", "dueDates"); ok {
		for _, entry := range asSlice(v) {
			d := asObject(entry)
			name := asString(d["assignment"])
			due := asString(d["due_date"])
			if name != "" && due != "" {
				dueByAssignment[strings.ToLower(name)] = due
			}
		}
	}

	if v, ok := firstKey(obj, "assignments"); ok {
		for _, entry := range asSlice(v) {
			var assignment domain.RemainingAssignment
			switch t := entry.(type) {
			case string:
				assignment.Name = strings.TrimSpace(t)
			case map[string]any:
				assignment.Name = asString(t["name"])
				assignment.Category = asString(t["category"])
				assignment.DueDate = asString(t["due_date"])
			}
			if assignment.Name == "" {
				continue
			}
			if assignment.DueDate == "" {
				assignment.DueDate = dueByAssignment[strings.ToLower(assignment.Name)]
			}
			data.Assignments = append(data.Assignments, assignment)
		}
	}

	return data, nil
}

// ParseGrades coerces an LLM response into GradesData. Numeric strings are
// accepted everywhere; a grade of "Dropped" survives as the dropped marker.
func ParseGrades(raw string) (*domain.GradesData, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	data := &domain.GradesData{}

	if v, ok := firstKey(obj, "completed_assignments", "completedAssignments", "completed"); ok {
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
			data.CompletedAssignments = append(data.CompletedAssignments, completed)
		}
	}

	if v, ok := firstKey(obj, "incomplete_assignments", "incompleteAssignments", "remaining_assignments"); ok {
		for _, entry := range asSlice(v) {
			a := asObject(entry)
			name := asString(a["name"])
			if name == "" {
				continue
			}
			data.IncompleteAssignments = append(data.IncompleteAssignments, domain.RemainingAssignment{
				Name:     name,
				Category: asString(a["category"]),
				DueDate:  asString(a["due_date"]),
			})
		}
	}

	if v, ok := firstKey(obj, "current_grade", "currentGrade"); ok {
		data.CurrentGrade = asString(v)
	}

	if len(data.CompletedAssignments) == 0 && len(data.IncompleteAssignments) == 0 {
		return nil, fmt.Errorf("grades response has no assignments")
	}
	return data, nil
}

// ParseTranscript coerces an LLM response into TranscriptData.
func ParseTranscript(raw string) (*domain.TranscriptData, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	data := &domain.TranscriptData{}
	if gpa, ok := asFloat(obj["gpa"]); ok {
		data.GPA = gpa
	}

	history := obj
	if v, ok := firstKey(obj, "academic_history", "academicHistory"); ok {
		history = asObject(v)
	}
	if v, ok := firstKey(history, "relevant_courses", "relevantCourses", "courses"); ok {
		for _, entry := range asSlice(v) {
			c := asObject(entry)
			name := asString(c["name"])
			if name == "" {
				continue
			}
			past := domain.PastCourse{Name: name, Grade: asString(c["grade"])}
			if hours, ok := asFloat(c["credit_hours"]); ok {
				past.CreditHours = hours
			}
			data.AcademicHistory.RelevantCourses = append(data.AcademicHistory.RelevantCourses, past)
		}
	}

	if data.GPA == 0 && len(data.AcademicHistory.RelevantCourses) == 0 {
		return nil, fmt.Errorf("transcript response has no GPA or course history")
	}
	return data, nil
}
