// Package grading holds the pure grade math: the deterministic calculator
// over a canonical course model and the linear-regression predictor. Nothing
// here performs I/O and nothing here may fail on a well-formed model.
package grading

import (
	"fmt"
	"sort"
	"strings"

	"github.com/academica/gradeflow/internal/core/domain"
)

// Calculate derives the current/min/max grade statistics from a course model.
// Total over any well-formed (possibly empty) model.
func Calculate(model *domain.CanonicalCourseModel) domain.GradeCalculation {
	stats := make(map[string]domain.CategoryStats, len(model.GradeWeights))
	order := make([]string, 0, len(model.GradeWeights))
	for _, w := range model.GradeWeights {
		stats[w.Name] = domain.CategoryStats{Weight: w.Weight}
		order = append(order, w.Name)
	}

	findCategory := func(name string) (string, bool) {
		for _, candidate := range order {
			if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(name)) {
				return candidate, true
			}
		}
		return "", false
	}

	for _, a := range model.CompletedAssignments {
		category, ok := findCategory(a.Category)
		if !ok {
			continue
		}
		s := stats[category]
		// Dropped assignments are excluded from both numerator and
		// denominator; they still count as completed work.
		s.Completed++
		if !a.Grade.Dropped {
			maxPoints := a.MaxPoints
			if maxPoints <= 0 {
				maxPoints = 100
			}
			s.TotalPoints += a.Grade.Value
			s.MaxPoints += maxPoints
		}
		stats[category] = s
	}

	for _, a := range model.RemainingAssignments {
		category, ok := findCategory(a.Category)
		if !ok {
			continue
		}
		s := stats[category]
		s.Remaining++
		stats[category] = s
	}

	coveredWeight := 0.0
	weightedCurrentSum := 0.0
	remainingWeightSum := 0.0
	for name, s := range stats {
		if s.MaxPoints > 0 {
			average := s.TotalPoints / s.MaxPoints * 100
			s.Average = &average
			coveredWeight += s.Weight
			weightedCurrentSum += average / 100 * s.Weight
		}
		if s.Remaining > 0 {
			remainingWeightSum += s.Weight * float64(s.Remaining) / float64(s.Completed+s.Remaining)
		}
		stats[name] = s
	}

	calc := domain.GradeCalculation{
		CategorizedGrades: stats,
		MaxPossibleGrade:  100,
		MinPossibleGrade:  0,
	}

	if coveredWeight > 0 {
		calc.CurrentGrade = weightedCurrentSum / coveredWeight * 100
		denominator := coveredWeight + remainingWeightSum
		calc.MaxPossibleGrade = (weightedCurrentSum + remainingWeightSum) / denominator * 100
		calc.MinPossibleGrade = weightedCurrentSum / denominator * 100
	}
	calc.LetterGrade = LetterGrade(calc.CurrentGrade)
	calc.Analysis = buildAnalysis(calc, order)

	return calc
}

func buildAnalysis(calc domain.GradeCalculation, categoryOrder []string) []string {
	lines := []string{
		fmt.Sprintf("Current grade: %.1f%% (%s).", calc.CurrentGrade, calc.LetterGrade),
	}
	if calc.MaxPossibleGrade > calc.CurrentGrade {
		lines = append(lines, fmt.Sprintf("Best case final grade: %.1f%%.", calc.MaxPossibleGrade))
	}
	if calc.MinPossibleGrade < calc.CurrentGrade {
		lines = append(lines, fmt.Sprintf("Worst case final grade: %.1f%%.", calc.MinPossibleGrade))
	}

	if len(categoryOrder) == 0 {
		for name := range calc.CategorizedGrades {
			categoryOrder = append(categoryOrder, name)
		}
		sort.Strings(categoryOrder)
	}
	for _, name := range categoryOrder {
		s, ok := calc.CategorizedGrades[name]
		if !ok {
			continue
		}
		if s.Average != nil {
			lines = append(lines, fmt.Sprintf("%s: average %.1f%% (%d completed, %d remaining).",
				name, *s.Average, s.Completed, s.Remaining))
		} else {
			lines = append(lines, fmt.Sprintf("%s: no graded work yet (%d completed, %d remaining).",
				name, s.Completed, s.Remaining))
		}
	}
	return lines
}
