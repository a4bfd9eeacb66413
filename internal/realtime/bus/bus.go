// Package bus relays activity messages between server instances so each
// instance's hub can deliver to the connections it holds.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/roomchat-backend/internal/realtime"
)

const DefaultChannel = "inbox-activity"

type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	// Subscribe delivers every relayed message to fn until ctx ends. It
	// returns once the subscription is live.
	Subscribe(ctx context.Context, fn func(realtime.SSEMessage)) error
	Ping(ctx context.Context) error
	Close() error
}

const envelopeVersion = 1

// envelope is the wire form on the relay channel. Origin names the publishing
// instance; it is informational only since every instance, the origin
// included, broadcasts what it receives.
type envelope struct {
	V       int     `json:"v"`
	Origin  string  `json:"origin,omitempty"`
	Channel string  `json:"channel"`
	Event   string  `json:"event"`
	Scope   *string `json:"scope"`
}

func encode(origin string, msg realtime.SSEMessage) ([]byte, error) {
	env := envelope{V: envelopeVersion, Origin: origin, Channel: msg.Channel, Event: string(msg.Event)}
	if p, ok := msg.Data.(realtime.ActivityPayload); ok && p.Scope != nil {
		s := p.Scope.String()
		env.Scope = &s
	}
	return json.Marshal(env)
}

// decode rebuilds the typed message so hubs on every instance hand clients
// the same frame shape.
func decode(raw []byte) (realtime.SSEMessage, string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return realtime.SSEMessage{}, "", err
	}
	if env.V != envelopeVersion {
		return realtime.SSEMessage{}, env.Origin, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	if env.Channel == "" {
		return realtime.SSEMessage{}, env.Origin, fmt.Errorf("missing channel")
	}
	if env.Event != "" && realtime.SSEEvent(env.Event) != realtime.SSEEventChatActivity {
		return realtime.SSEMessage{}, env.Origin, fmt.Errorf("unexpected event %q", env.Event)
	}
	scope, err := realtime.ParseScope(env.Scope)
	if err != nil {
		return realtime.SSEMessage{}, env.Origin, err
	}
	return realtime.NewActivityMessage(env.Channel, scope), env.Origin, nil
}
