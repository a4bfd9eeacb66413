package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

// RequestLogger writes one line per finished request. The inbox stream is
// logged on close, so its duration is the connection lifetime.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx := c.Request.Context()
		fields := append([]interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"route", route,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"elapsed", time.Since(start).String(),
		}, ctxutil.Trace(ctx).Fields()...)
		if uid := ctxutil.UserID(ctx); uid != uuid.Nil {
			fields = append(fields, "user_id", uid.String())
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}
		requestLogFn(log, c.Writer.Status())("request done", fields...)
	}
}

func requestLogFn(log *logger.Logger, status int) func(string, ...interface{}) {
	switch {
	case status >= 500:
		return log.Error
	case status >= 400:
		return log.Warn
	default:
		return log.Info
	}
}
