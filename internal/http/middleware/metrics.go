package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/roomchat-backend/internal/observability"
)

// Metrics records request counts and latency. Long-lived streams are counted
// once they end but are kept out of the in-flight gauge.
func Metrics(m *observability.Metrics, streamPaths ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	streams := make(map[string]struct{}, len(streamPaths))
	for _, p := range streamPaths {
		streams[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if _, ok := streams[route]; !ok {
			m.ApiInflightInc()
			defer m.ApiInflightDec()
		}

		c.Next()

		if route == "" {
			route = "unknown"
		}
		m.ObserveAPI(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
