package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gin-admin-kit/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records one observation per request labelled by route template.
// Requests that match no route share a single label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
