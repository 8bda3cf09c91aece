// Package apierr turns domain errors into HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/media"
	"tourism-app/internal/domain/promotions"
	"tourism-app/internal/domain/reviews"
	"tourism-app/internal/infra/logger"
)

var statusByKind = map[billing.Kind]int{
	billing.KindForbidden: http.StatusForbidden,
	billing.KindConflict:  http.StatusUnprocessableEntity,
	billing.KindNotFound:  http.StatusNotFound,
	billing.KindInvalid:   http.StatusBadRequest,
	billing.KindExternal:  http.StatusInternalServerError,
}

// Write answers c with the status and body matching err. Anything that is
// not a known domain error is logged and reported as a generic 500.
func Write(c *gin.Context, err error) {
	var be *billing.Error
	switch {
	case errors.As(err, &be):
		status, ok := statusByKind[be.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", c.FullPath(), "code", be.Code, "error", err)
		}
		c.AbortWithStatusJSON(status, gin.H{"error": be.Message, "code": be.Code})

	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, media.ErrOwnerNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})

	case errors.Is(err, media.ErrUnknownOwnerKind), errors.Is(err, media.ErrReorderMismatch), errors.Is(err, reviews.ErrInvalidRating),
		errors.Is(err, promotions.ErrInvalidDiscount), errors.Is(err, promotions.ErrInvalidPeriod):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, access.ErrNotOwner):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Already exists"})

	default:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// BadRequest reports a binding or validation failure.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
