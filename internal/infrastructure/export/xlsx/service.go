// Package xlsx renders an owner's course standing as an XLSX workbook: one
// summary sheet, one category sheet, one assignment sheet.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/grading"
	"github.com/academica/gradeflow/internal/core/ports"
)

type Service struct {
	models ports.CourseModelRepository
	logger *slog.Logger
}

func NewService(models ports.CourseModelRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{models: models, logger: logger}
}

// ExportGradeReport loads the owner's canonical model, runs the grade
// calculator, and returns the workbook bytes.
func (s *Service) ExportGradeReport(ctx context.Context, ownerID string) ([]byte, error) {
	start := time.Now()

	model, err := s.models.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load course model: %w", err)
	}
	calc := grading.Calculate(model)

	f := excelize.NewFile()

	if err := writeSummarySheet(f, model, calc); err != nil {
		return nil, err
	}
	if err := writeCategoriesSheet(f, model, calc); err != nil {
		return nil, err
	}
	if err := writeAssignmentsSheet(f, model); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"owner_id", ownerID,
		"assignments", len(model.CompletedAssignments)+len(model.RemainingAssignments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, model *domain.CanonicalCourseModel, calc domain.GradeCalculation) error {
	const sheet = "Summary"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	rows := [][]any{
		{"Course", model.Course.Name},
		{"Instructor", model.Course.Instructor},
		{"Credit Hours", model.Course.CreditHours},
		{"Current Grade", fmt.Sprintf("%.1f%% (%s)", calc.CurrentGrade, calc.LetterGrade)},
		{"Best Case", fmt.Sprintf("%.1f%%", calc.MaxPossibleGrade)},
		{"Worst Case", fmt.Sprintf("%.1f%%", calc.MinPossibleGrade)},
	}
	if model.GPA > 0 {
		rows = append(rows, []any{"GPA", model.GPA})
	}
	for i, analysis := range calc.Analysis {
		label := ""
		if i == 0 {
			label = "Analysis"
		}
		rows = append(rows, []any{label, analysis})
	}

	if err := writeRows(f, sheet, rows, 1); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 72)
	return nil
}

func writeCategoriesSheet(f *excelize.File, model *domain.CanonicalCourseModel, calc domain.GradeCalculation) error {
	const sheet = "Categories"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}

	rows := [][]any{{"Category", "Weight", "Completed", "Remaining", "Average"}}
	for _, w := range model.GradeWeights {
		stats := calc.CategorizedGrades[w.Name]
		average := "-"
		if stats.Average != nil {
			average = fmt.Sprintf("%.1f%%", *stats.Average)
		}
		rows = append(rows, []any{w.Name, fmt.Sprintf("%.0f%%", w.Weight*100), stats.Completed, stats.Remaining, average})
	}

	if err := writeRows(f, sheet, rows, 1); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "E", 12)
	return nil
}

func writeAssignmentsSheet(f *excelize.File, model *domain.CanonicalCourseModel) error {
	const sheet = "Assignments"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}

	rows := [][]any{{"Assignment", "Category", "Status", "Score", "Due Date"}}

	due := make(map[string]string, len(model.DueDates))
	for _, d := range model.DueDates {
		due[d.Assignment] = d.Due
	}

	for _, a := range model.CompletedAssignments {
		score := fmt.Sprintf("%.1f / %.0f", a.Grade.Value, a.MaxPoints)
		status := "completed"
		if a.Grade.Dropped {
			score = "-"
			status = "dropped"
		}
		rows = append(rows, []any{a.Name, a.Category, status, score, due[a.Name]})
	}
	for _, a := range model.RemainingAssignments {
		dueDate := a.DueDate
		if dueDate == "" {
			dueDate = due[a.Name]
		}
		rows = append(rows, []any{a.Name, a.Category, "remaining", "-", dueDate})
	}

	if err := writeRows(f, sheet, rows, 1); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", "E", 16)
	return nil
}

func ensureSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, startRow int) error {
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, startRow+i)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	return nil
}
