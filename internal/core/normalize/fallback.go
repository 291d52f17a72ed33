package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/academica/gradeflow/internal/core/domain"
)

// Regex fallbacks run when the LLM capability is down or returned garbage.
// They are heuristic by design and must always produce a schema-valid object.

var (
	// "Homework: 40%", "Exams = 60%", "Participation (10%)"
	weightPattern = regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z /&'-]{0,40}?)\s*(?::|=|\()\s*(\d{1,3}(?:\.\d+)?)\s*%\)?`)

	// "Homework 1: 90/100", "Quiz 2 - 18/20"
	scorePattern = regexp.MustCompile(`(?m)^\s*([A-Za-z][\w /&'-]{0,60}?)\s*[-:]\s*(\d{1,4}(?:\.\d+)?)\s*/\s*(\d{1,4}(?:\.\d+)?)\s*$`)

	// "Homework 3: 85%", "Midterm - 78 %"
	percentScorePattern = regexp.MustCompile(`(?m)^\s*([A-Za-z][\w /&'-]{0,60}?)\s*[-:]\s*(\d{1,3}(?:\.\d+)?)\s*%\s*$`)

	// "Lab 4: Dropped"
	droppedPattern = regexp.MustCompile(`(?mi)^\s*([A-Za-z][\w /&'-]{0,60}?)\s*[-:]\s*dropped\s*$`)

	gpaPattern = regexp.MustCompile(`(?i)\bGPA\s*[:=]?\s*([0-4](?:\.\d{1,3})?)\b`)
)

// DefaultWeights is the last-resort grading scheme when no weight patterns
// are found in the text.
func DefaultWeights() []domain.GradeWeight {
	return []domain.GradeWeight{
		{Name: "Assignments", Weight: 0.4},
		{Name: "Exams", Weight: 0.6},
	}
}

// FallbackSyllabus extracts grade weights from label/percent patterns. It
// never fails: with no matches it returns the default two-category scheme.
func FallbackSyllabus(text string) *domain.SyllabusData {
	data := &domain.SyllabusData{
		Course: domain.CourseInfo{Name: "Unknown", Instructor: "Unknown"},
	}

	seen := map[string]bool{}
	for _, match := range weightPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(match[1])
		value, err := strconv.ParseFloat(match[2], 64)
		if err != nil || name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		data.GradeWeights = append(data.GradeWeights, domain.GradeWeight{Name: name, Weight: value})
	}

	data.GradeWeights = RescaleWeights(data.GradeWeights)
	if len(data.GradeWeights) == 0 {
		data.GradeWeights = DefaultWeights()
	}
	return data
}

// FallbackGrades extracts completed assignments from score patterns
// ("name: points/max", "name: percent%") and dropped markers.
func FallbackGrades(text string) *domain.GradesData {
	data := &domain.GradesData{}
	seen := map[string]bool{}

	add := func(name string, grade domain.Grade, maxPoints float64) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		data.CompletedAssignments = append(data.CompletedAssignments, domain.CompletedAssignment{
			Name:      strings.TrimSpace(name),
			Grade:     grade,
			MaxPoints: maxPoints,
		})
	}

	for _, match := range scorePattern.FindAllStringSubmatch(text, -1) {
		points, errPoints := strconv.ParseFloat(match[2], 64)
		maxPoints, errMax := strconv.ParseFloat(match[3], 64)
		if errPoints != nil || errMax != nil || maxPoints <= 0 {
			continue
		}
		add(match[1], domain.NumericGrade(points), maxPoints)
	}
	for _, match := range percentScorePattern.FindAllStringSubmatch(text, -1) {
		percent, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		add(match[1], domain.NumericGrade(percent), 100)
	}
	for _, match := range droppedPattern.FindAllStringSubmatch(text, -1) {
		add(match[1], domain.DroppedGrade(), 100)
	}

	return data
}

// FallbackTranscript pulls a GPA out of the text if one is present.
func FallbackTranscript(text string) *domain.TranscriptData {
	data := &domain.TranscriptData{}
	if match := gpaPattern.FindStringSubmatch(text); match != nil {
		if gpa, err := strconv.ParseFloat(match[1], 64); err == nil {
			data.GPA = gpa
		}
	}
	return data
}
