package httpadapter

import (
	"net/http"

	"github.com/academica/gradeflow/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrCourseModelNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrVersionConflict),
		domain.IsKind(err, domain.ErrDocumentExists):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
