package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/httputil"
)

const (
	// RequestIDKey is the gin context key for the request ID.
	RequestIDKey = httputil.RequestIDKey

	// RequestIDHeader is the HTTP header used to propagate the request ID.
	RequestIDHeader = "X-Request-ID"

	loggerKey = "request_logger"
)

// RequestID always generates a fresh server-side UUID for the canonical request ID.
// If the client provides an X-Request-ID header, it is logged as a separate
// "client_request_id" field but never used as the canonical ID. A logger
// entry carrying both IDs is stored for handlers; see Logger.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		fields := logrus.Fields{"request_id": id}

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			fields["client_request_id"] = clientID
			c.Set("client_request_id", clientID)
		}

		c.Set(RequestIDKey, id)
		c.Set(loggerKey, log.WithFields(fields))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Logger returns the request-scoped log entry, falling back to log when the
// RequestID middleware did not run.
func Logger(c *gin.Context, log *logrus.Logger) *logrus.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}

	return logrus.NewEntry(log)
}
