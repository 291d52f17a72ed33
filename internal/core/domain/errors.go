package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentExists      = errors.New("document already exists")
	ErrCourseModelNotFound = errors.New("course model not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrVersionConflict     = errors.New("course model version conflict")
	ErrTemporary           = errors.New("temporary failure")

	// Pipeline failure kinds. Extraction surfaces to the caller; the others
	// are recovered locally via deterministic fallbacks.
	ErrExtraction    = errors.New("extraction failed")
	ErrNormalization = errors.New("normalization failed")
	ErrMerge         = errors.New("merge failed")
	ErrPrediction    = errors.New("prediction failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
