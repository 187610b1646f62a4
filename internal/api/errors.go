package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/httputil"
	"github.com/persistorai/revisor/internal/metrics"
	"github.com/persistorai/revisor/internal/middleware"
	"github.com/persistorai/revisor/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInternalError   = "internal_error"
	ErrCodeValidationError = "validation_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// invalidErrors are client mistakes reported as 400.
var invalidErrors = []error{
	models.ErrInvalidRevisionType,
	models.ErrUnknownSchema,
	models.ErrUnknownRelation,
	models.ErrMissingType,
	models.ErrMissingID,
	models.ErrInvalidID,
}

// respondServiceError maps a service error onto an HTTP status. Unknown
// errors are logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, log *logrus.Logger, action string, err error) {
	switch {
	case errors.Is(err, models.ErrDocumentNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
	case errors.Is(err, models.ErrRevisionNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "revision not found")
	case errors.Is(err, models.ErrDuplicateKey):
		respondError(c, http.StatusConflict, ErrCodeConflict, "document with this ID already exists")
	case errors.Is(err, models.ErrRevisionConflict):
		respondError(c, http.StatusConflict, ErrCodeConflict, "document was revised concurrently; reload and retry")
	case isInvalid(err):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	default:
		middleware.Logger(c, log).WithError(err).WithField("action", action).Error("request.failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

func isInvalid(err error) bool {
	for _, target := range invalidErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
