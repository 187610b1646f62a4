package middleware

import "github.com/gin-gonic/gin"

// APIHeaders sets the response headers shared by every JSON endpoint.
// Revision payloads are never cacheable.
func APIHeaders(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Cache-Control", "no-store")
		c.Header("X-Revisor-Version", version)

		c.Next()
	}
}
