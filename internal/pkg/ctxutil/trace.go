package ctxutil

import "context"

type requestTraceKey struct{}

// RequestTrace correlates one HTTP request across logs and spans.
type RequestTrace struct {
	TraceID   string
	RequestID string
}

// Fields returns the non-empty ids as logger key/value pairs.
func (t RequestTrace) Fields() []interface{} {
	var out []interface{}
	if t.TraceID != "" {
		out = append(out, "trace_id", t.TraceID)
	}
	if t.RequestID != "" {
		out = append(out, "request_id", t.RequestID)
	}
	return out
}

func WithRequestTrace(ctx context.Context, t RequestTrace) context.Context {
	return context.WithValue(Default(ctx), requestTraceKey{}, t)
}

// Trace returns the ids stored on ctx, or the zero value.
func Trace(ctx context.Context) RequestTrace {
	t, _ := Default(ctx).Value(requestTraceKey{}).(RequestTrace)
	return t
}
