package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/academica/gradeflow/internal/core/domain"
)

type CourseModelRepository struct {
	db *sql.DB
}

func NewCourseModelRepository(db *sql.DB) *CourseModelRepository {
	return &CourseModelRepository{db: db}
}

func (r *CourseModelRepository) Get(ctx context.Context, ownerID string) (*domain.CanonicalCourseModel, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT model, version
FROM course_models
WHERE owner_id = $1
`, ownerID)

	var payload []byte
	var version int64
	if err := row.Scan(&payload, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCourseModelNotFound, "get course model",
				fmt.Errorf("owner %s", ownerID))
		}
		return nil, fmt.Errorf("scan course model: %w", err)
	}

	var model domain.CanonicalCourseModel
	if err := json.Unmarshal(payload, &model); err != nil {
		return nil, fmt.Errorf("unmarshal course model: %w", err)
	}
	model.Version = version
	return &model, nil
}

// Save is compare-and-swap on the stored version. expectedVersion 0 means the
// caller saw no model; anything else must match the current row exactly.
func (r *CourseModelRepository) Save(ctx context.Context, ownerID string, model *domain.CanonicalCourseModel, expectedVersion int64) error {
	payload, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("marshal course model: %w", err)
	}
	now := time.Now().UTC()

	if expectedVersion == 0 {
		res, err := r.db.ExecContext(ctx, `
INSERT INTO course_models (owner_id, model, version, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (owner_id) DO NOTHING
`, ownerID, payload, model.Version, now)
		if err != nil {
			return fmt.Errorf("insert course model: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert course model rows affected: %w", err)
		}
		if affected == 0 {
			return domain.WrapError(domain.ErrVersionConflict, "insert course model",
				fmt.Errorf("owner %s already has a model", ownerID))
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE course_models
SET model = $3, version = $4, updated_at = $5
WHERE owner_id = $1 AND version = $2
`, ownerID, expectedVersion, payload, model.Version, now)
	if err != nil {
		return fmt.Errorf("update course model: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course model rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrVersionConflict, "update course model",
			fmt.Errorf("owner %s version %d is stale", ownerID, expectedVersion))
	}
	return nil
}
