package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gol43/test-moon/internal/repository"
	"github.com/gol43/test-moon/internal/service"

	"go.uber.org/zap"
)

// writeError maps service and repository errors to a status and a client-safe detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, Fail(detail))
}

func classify(err error) (int, string) {
	var (
		validationErr *validationError
		constraintErr *repository.ConstraintError
		syntaxErr     *json.SyntaxError
		typeErr       *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrDepthExceeded),
		errors.Is(err, service.ErrInvalidReference),
		errors.Is(err, service.ErrInvalidFilter):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &constraintErr):
		return http.StatusConflict, constraintErr.Error()
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, validationErr.Error()
	case errors.Is(err, errEmptyBody):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &syntaxErr):
		return http.StatusBadRequest, "malformed JSON body"
	case errors.As(err, &typeErr):
		return http.StatusUnprocessableEntity, typeErr.Field + " has the wrong type"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
