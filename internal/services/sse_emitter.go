package services

import (
	"context"

	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
	"github.com/yungbote/roomchat-backend/internal/realtime/bus"
)

// SSEEmitter hands a message to whatever fans it out to connections.
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage) error
}

// HubEmitter broadcasts on the local hub. Used when a single instance serves
// every connection.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	e.Hub.Broadcast(msg)
	return nil
}

// RedisEmitter publishes to the bus; every instance's forwarder then
// broadcasts locally, including this one.
type RedisEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	if err := e.Bus.Publish(ctx, msg); err != nil {
		if e.Log != nil {
			e.Log.Warn("activity bus publish failed", "channel", msg.Channel, "error", err)
		}
		return err
	}
	return nil
}
