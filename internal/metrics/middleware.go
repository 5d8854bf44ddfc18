package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records request count and latency per route.
// Unmatched routes are grouped under one label to bound cardinality.
func Middleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status()), serviceName).Inc()
		HTTPRequestDuration.WithLabelValues(method, path, serviceName).Observe(time.Since(start).Seconds())
	}
}
