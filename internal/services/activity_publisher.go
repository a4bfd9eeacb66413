package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

// ActivityPublisher announces committed mutations. It must only be called
// after the store transaction has committed.
type ActivityPublisher interface {
	Publish(ctx context.Context, scope ctxutil.ActivityScope)
	// Flush publishes everything collected in pa, in collection order.
	Flush(ctx context.Context, pa *ctxutil.PendingActivity)
}

type activityPublisher struct {
	log  *logger.Logger
	emit SSEEmitter
}

func NewActivityPublisher(log *logger.Logger, emit SSEEmitter) ActivityPublisher {
	return &activityPublisher{log: log.With("service", "ActivityPublisher"), emit: emit}
}

// ActivityChannels lists where a scope is announced: every participant's
// inbox, plus the thread channel for new messages.
func ActivityChannels(scope ctxutil.ActivityScope) []string {
	seen := make(map[uuid.UUID]struct{}, len(scope.Participants))
	out := make([]string, 0, len(scope.Participants)+1)
	for _, uid := range scope.Participants {
		if uid == uuid.Nil {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, realtime.InboxChannel(uid))
	}
	if scope.ThreadChannel && scope.ThreadID != uuid.Nil {
		out = append(out, realtime.ThreadChannel(scope.ThreadID))
	}
	return out
}

func (p *activityPublisher) Publish(ctx context.Context, scope ctxutil.ActivityScope) {
	if p == nil || p.emit == nil {
		return
	}
	ctx, span := observability.Tracer().Start(ctx, "activity.publish")
	defer span.End()

	start := time.Now()
	channels := ActivityChannels(scope)
	span.SetAttributes(
		attribute.String("thread.id", scope.ThreadID.String()),
		attribute.Int("activity.channels", len(channels)),
	)

	var threadScope *uuid.UUID
	if scope.ThreadID != uuid.Nil {
		id := scope.ThreadID
		threadScope = &id
	}
	status := "ok"
	for _, ch := range channels {
		if err := p.emit.Emit(ctx, realtime.NewActivityMessage(ch, threadScope)); err != nil {
			// At-most-once: a lost event only delays the client's next re-fetch.
			status = "error"
			span.RecordError(err)
			p.log.Warn("activity emit failed", "channel", ch, "error", err)
		}
	}
	if status != "ok" {
		span.SetStatus(codes.Error, "emit failed")
	}
	observability.Current().ObservePublish(status, time.Since(start))
}

func (p *activityPublisher) Flush(ctx context.Context, pa *ctxutil.PendingActivity) {
	for _, scope := range pa.Drain() {
		p.Publish(ctx, scope)
	}
}
