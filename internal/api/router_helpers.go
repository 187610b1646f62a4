package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/middleware"
	"github.com/persistorai/revisor/internal/models"
)

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		middleware.Logger(c, log).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}).Info("request")
	}
}

// maxPaginationLimit caps the maximum number of items per page.
const maxPaginationLimit = 1000

// maxPaginationOffset caps the maximum offset for paginated queries.
const maxPaginationOffset = 100000

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	if v > maxPaginationLimit {
		return maxPaginationLimit
	}

	return v
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	if v > maxPaginationOffset {
		return maxPaginationOffset
	}

	return v
}

// parseRevisionNumber parses a :number path parameter.
func parseRevisionNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("revision number must be a non-negative integer")
	}

	return n, nil
}

// validatePathID checks that a path parameter ID is non-empty and within length limits.
func validatePathID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	return models.ValidateID("id", id)
}

// pathIDs validates the named path parameters, responding 400 on the first
// invalid one. It returns nil after responding.
func pathIDs(c *gin.Context, names ...string) []string {
	out := make([]string, len(names))

	for i, name := range names {
		v := c.Param(name)
		if err := validatePathID(v); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, name+": "+err.Error())

			return nil
		}

		out[i] = v
	}

	return out
}
