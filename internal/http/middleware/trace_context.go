package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// TraceContext tags the request with trace and request ids and echoes both
// back. An active otel span wins over a client supplied trace id.
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rt := ctxutil.RequestTrace{
			RequestID: firstNonEmpty(c.GetHeader(headerRequestID), uuid.NewString()),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			rt.TraceID = sc.TraceID().String()
		}
		rt.TraceID = firstNonEmpty(rt.TraceID, c.GetHeader(headerTraceID), uuid.NewString())

		c.Request = c.Request.WithContext(ctxutil.WithRequestTrace(c.Request.Context(), rt))
		c.Writer.Header().Set(headerTraceID, rt.TraceID)
		c.Writer.Header().Set(headerRequestID, rt.RequestID)
		c.Next()
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
