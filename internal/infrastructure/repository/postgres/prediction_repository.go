package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/academica/gradeflow/internal/core/domain"
)

// PredictionRepository is append-only: rows are inserted and read back, never
// updated.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(ctx context.Context, prediction *domain.Prediction) error {
	payload, err := json.Marshal(prediction)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO predictions (id, owner_id, payload, created_at)
VALUES ($1, $2, $3, $4)
`, prediction.ID, prediction.OwnerID, payload, prediction.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (r *PredictionRepository) Latest(ctx context.Context, ownerID string) (*domain.Prediction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT payload
FROM predictions
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT 1
`, ownerID)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "latest prediction",
				fmt.Errorf("owner %s has no predictions", ownerID))
		}
		return nil, fmt.Errorf("scan prediction: %w", err)
	}

	var prediction domain.Prediction
	if err := json.Unmarshal(payload, &prediction); err != nil {
		return nil, fmt.Errorf("unmarshal prediction: %w", err)
	}
	return &prediction, nil
}
