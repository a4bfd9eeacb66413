package realtime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type SSEEvent string

const (
	// SSEEventConnected is the first frame on every stream and carries the
	// connection id used for thread channel join/leave.
	SSEEventConnected SSEEvent = "connected"
	// SSEEventChatActivity tells the client to re-fetch its thread list.
	SSEEventChatActivity SSEEvent = "chat-activity"
)

const (
	inboxPrefix  = "inbox:"
	threadPrefix = "thread:"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// ActivityPayload is the only in-band chat payload. It carries no thread
// state; Scope is nil when the change is not tied to a single thread.
type ActivityPayload struct {
	Kind  string     `json:"kind"`
	Scope *uuid.UUID `json:"scope"`
}

func NewActivityMessage(channel string, scope *uuid.UUID) SSEMessage {
	return SSEMessage{
		Channel: channel,
		Event:   SSEEventChatActivity,
		Data:    ActivityPayload{Kind: string(SSEEventChatActivity), Scope: scope},
	}
}

func InboxChannel(userID uuid.UUID) string { return inboxPrefix + userID.String() }

func ThreadChannel(threadID uuid.UUID) string { return threadPrefix + threadID.String() }

// ParseThreadChannel returns the thread id of a thread channel name.
func ParseThreadChannel(channel string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, threadPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, threadPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ParseScope reads an optional thread id; nil and "" mean inbox-wide.
func ParseScope(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("bad scope %q: %w", *raw, err)
	}
	return &id, nil
}
