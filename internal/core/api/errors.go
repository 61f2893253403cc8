package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solatis/fraudkeeper/internal/types"
)

// renderError maps domain errors to HTTP status codes inline:
// schema violations to 400, missing rules to 404, stale versions to 409,
// lock contention to 503 with Retry-After. Anything else is a 500.
func renderError(c *gin.Context, err error) {
	var validation *types.SchemaValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "rule payload failed validation",
			"violations": validation.Violations,
		})
		return
	}

	switch {
	case errors.Is(err, types.ErrRuleNotFound), errors.Is(err, types.ErrActiveRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrLockTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
