package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/service"
)

// Metrics observes every request against its route template so that IDs in
// the path do not explode label cardinality.
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
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
