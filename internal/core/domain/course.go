package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// WeightEpsilon is the tolerance for the grade-weight sum invariant.
const WeightEpsilon = 1e-6

type CourseInfo struct {
	Name        string  `json:"name"`
	Instructor  string  `json:"instructor"`
	CreditHours float64 `json:"credit_hours"`
}

type GradeWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Grade is either a numeric score or the literal string "Dropped".
type Grade struct {
	Value   float64
	Dropped bool
}

func NumericGrade(v float64) Grade { return Grade{Value: v} }

func DroppedGrade() Grade { return Grade{Dropped: true} }

func (g Grade) MarshalJSON() ([]byte, error) {
	if g.Dropped {
		return json.Marshal("Dropped")
	}
	return json.Marshal(g.Value)
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*g = Grade{Value: num}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("grade must be a number or \"Dropped\": %s", data)
	}
	if strings.EqualFold(strings.TrimSpace(s), "dropped") {
		*g = Grade{Dropped: true}
		return nil
	}
	var parsed float64
	if _, err := fmt.Sscanf(strings.TrimSuffix(strings.TrimSpace(s), "%"), "%f", &parsed); err != nil {
		return fmt.Errorf("grade must be a number or \"Dropped\": %q", s)
	}
	*g = Grade{Value: parsed}
	return nil
}

type CompletedAssignment struct {
	Name      string  `json:"name"`
	Grade     Grade   `json:"grade"`
	MaxPoints float64 `json:"max_points"`
	Category  string  `json:"category"`
}

type RemainingAssignment struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	DueDate  string `json:"due_date,omitempty"`
}

type DueDate struct {
	Assignment string `json:"assignment"`
	Due        string `json:"due_date"`
}

type PastCourse struct {
	Name        string  `json:"name"`
	Grade       string  `json:"grade"`
	CreditHours float64 `json:"credit_hours,omitempty"`
}

type AcademicHistory struct {
	RelevantCourses []PastCourse `json:"relevant_courses"`
}

// SyllabusData is the normalized payload of a syllabus document.
type SyllabusData struct {
	Course       CourseInfo            `json:"course"`
	GradeWeights []GradeWeight         `json:"grade_weights"`
	Assignments  []RemainingAssignment `json:"assignments"`
}

// GradesData is the normalized payload of a grade-report document.
type GradesData struct {
	CompletedAssignments  []CompletedAssignment `json:"completed_assignments"`
	IncompleteAssignments []RemainingAssignment `json:"incomplete_assignments"`
	CurrentGrade          string                `json:"current_grade,omitempty"`
}

// TranscriptData is the normalized payload of a transcript document.
type TranscriptData struct {
	GPA             float64         `json:"gpa"`
	AcademicHistory AcademicHistory `json:"academic_history"`
}

// CanonicalCourseModel is the single reconciled representation of one course's
// grading structure and the student's performance within it. One model per
// owner; writes go through compare-and-swap on Version.
type CanonicalCourseModel struct {
	Course               CourseInfo            `json:"course"`
	GradeWeights         []GradeWeight         `json:"grade_weights"`
	CompletedAssignments []CompletedAssignment `json:"completed_assignments"`
	RemainingAssignments []RemainingAssignment `json:"remaining_assignments"`
	DueDates             []DueDate             `json:"due_dates"`
	GPA                  float64               `json:"gpa"`
	AcademicHistory      AcademicHistory       `json:"academic_history"`
	Version              int64                 `json:"version"`
}

// WeightSum reports the grade-weight total; the model invariant requires it to
// be within WeightEpsilon of 1.0.
func (m *CanonicalCourseModel) WeightSum() float64 {
	sum := 0.0
	for _, w := range m.GradeWeights {
		sum += w.Weight
	}
	return sum
}

// Validate checks the model invariants: weights normalized and every
// assignment category declared in the grade weights.
func (m *CanonicalCourseModel) Validate() error {
	if len(m.GradeWeights) == 0 {
		return fmt.Errorf("course model has no grade weights")
	}
	if math.Abs(m.WeightSum()-1.0) > WeightEpsilon {
		return fmt.Errorf("grade weights sum to %.6f, want 1.0", m.WeightSum())
	}

	declared := make(map[string]struct{}, len(m.GradeWeights))
	for _, w := range m.GradeWeights {
		declared[strings.ToLower(strings.TrimSpace(w.Name))] = struct{}{}
	}
	for _, a := range m.CompletedAssignments {
		if _, ok := declared[strings.ToLower(strings.TrimSpace(a.Category))]; !ok {
			return fmt.Errorf("completed assignment %q has undeclared category %q", a.Name, a.Category)
		}
	}
	for _, a := range m.RemainingAssignments {
		if _, ok := declared[strings.ToLower(strings.TrimSpace(a.Category))]; !ok {
			return fmt.Errorf("remaining assignment %q has undeclared category %q", a.Name, a.Category)
		}
	}
	return nil
}
