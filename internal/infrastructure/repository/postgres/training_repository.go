package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/academica/gradeflow/internal/core/domain"
)

type TrainingDataRepository struct {
	db *sql.DB
}

func NewTrainingDataRepository(db *sql.DB) *TrainingDataRepository {
	return &TrainingDataRepository{db: db}
}

func (r *TrainingDataRepository) List(ctx context.Context) ([]domain.TrainingRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT previous_grades, gpa, assignment_weight, exam_weight, final_grade
FROM training_rows
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list training rows: %w", err)
	}
	defer rows.Close()

	var out []domain.TrainingRow
	for rows.Next() {
		var row domain.TrainingRow
		var gradesRaw []byte
		if err := rows.Scan(&gradesRaw, &row.GPA, &row.AssignmentWeight, &row.ExamWeight, &row.FinalGrade); err != nil {
			return nil, fmt.Errorf("scan training row: %w", err)
		}
		if err := json.Unmarshal(gradesRaw, &row.PreviousGrades); err != nil {
			return nil, fmt.Errorf("unmarshal previous grades: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training rows: %w", err)
	}
	return out, nil
}

func (r *TrainingDataRepository) Add(ctx context.Context, row domain.TrainingRow) error {
	gradesJSON, err := json.Marshal(row.PreviousGrades)
	if err != nil {
		return fmt.Errorf("marshal previous grades: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO training_rows (previous_grades, gpa, assignment_weight, exam_weight, final_grade, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, gradesJSON, row.GPA, row.AssignmentWeight, row.ExamWeight, row.FinalGrade, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert training row: %w", err)
	}
	return nil
}
