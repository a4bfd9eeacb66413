package realtime

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

var ErrClientClosed = errors.New("realtime client closed")

type HubConfig struct {
	OutboundBuffer int
	Heartbeat      time.Duration
}

// SSEHub routes messages to connections by channel. A single mutex
// serializes every membership change, so join, leave and disconnect are
// linearizable per channel. Broadcast never blocks on a slow client.
type SSEHub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	cfg           HubConfig
	subscriptions map[string]map[*SSEClient]struct{}
	clients       map[uuid.UUID]*SSEClient
}

func NewSSEHub(log *logger.Logger, cfg HubConfig) *SSEHub {
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = 16
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	return &SSEHub{
		logger:        log.With("component", "SSEHub"),
		cfg:           cfg,
		subscriptions: make(map[string]map[*SSEClient]struct{}),
		clients:       make(map[uuid.UUID]*SSEClient),
	}
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	c := &SSEClient{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Outbound:  make(chan SSEMessage, hub.cfg.OutboundBuffer),
		channels:  make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	c.Logger = hub.logger.With("clientID", c.ID)

	hub.mu.Lock()
	hub.clients[c.ID] = c
	hub.mu.Unlock()
	observability.Current().ConnectionOpened()
	return c
}

// Client looks up a live connection by id.
func (hub *SSEHub) Client(id uuid.UUID) (*SSEClient, bool) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	c, ok := hub.clients[id]
	return c, ok
}

// AddChannel joins client to channel. Joining twice is a no-op. Joining
// after the client was closed fails with ErrClientClosed.
func (hub *SSEHub) AddChannel(client *SSEClient, channel string) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if client.closed {
		return ErrClientClosed
	}
	client.channels[channel] = struct{}{}
	members, ok := hub.subscriptions[channel]
	if !ok {
		members = make(map[*SSEClient]struct{})
		hub.subscriptions[channel] = members
	}
	members[client] = struct{}{}
	observability.Current().ChannelJoined(channel)

	hub.logger.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
	return nil
}

// RemoveChannel leaves channel. Leaving a channel the client is not in is a no-op.
func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	delete(client.channels, channel)
	hub.unsubscribeLocked(client, channel)
	hub.logger.Debug("SSE client unsubscribed from channel", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) unsubscribeLocked(client *SSEClient, channel string) {
	if members, ok := hub.subscriptions[channel]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
}

// CloseClient removes client from every channel and closes its outbound
// queue. Only the first call has an effect; it reports whether it did the cleanup.
func (hub *SSEHub) CloseClient(client *SSEClient) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if client.closed {
		return false
	}
	client.closed = true
	for ch := range client.channels {
		hub.unsubscribeLocked(client, ch)
	}
	client.channels = make(map[string]struct{})
	delete(hub.clients, client.ID)
	close(client.done)
	// Broadcasters hold the read lock while sending, so no send can race this close.
	close(client.Outbound)
	observability.Current().ConnectionClosed()

	hub.logger.Debug("SSE client unsubscribed from all channels", "clientID", client.ID)
	return true
}

// Broadcast delivers msg to every member of msg.Channel. A member whose
// queue is full misses the message; the others are unaffected.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	metrics := observability.Current()
	metrics.Broadcast(msg.Channel)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for c := range hub.subscriptions[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			metrics.MessageDropped(msg.Channel)
			hub.logger.Warn("Dropping SSE message; outbound buffer full", "clientID", c.ID, "channel", msg.Channel)
		}
	}
}

// Channels returns the sorted channel set of client.
func (hub *SSEHub) Channels(client *SSEClient) []string {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	out := make([]string, 0, len(client.channels))
	for ch := range client.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// MemberCount returns how many connections are joined to channel.
func (hub *SSEHub) MemberCount(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

// ConnectionCount returns the number of live connections.
func (hub *SSEHub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// CloseAll disconnects every live client, ending their streams. Used on shutdown.
func (hub *SSEHub) CloseAll() int {
	hub.mu.RLock()
	clients := make([]*SSEClient, 0, len(hub.clients))
	for _, c := range hub.clients {
		clients = append(clients, c)
	}
	hub.mu.RUnlock()

	n := 0
	for _, c := range clients {
		if hub.CloseClient(c) {
			n++
		}
	}
	return n
}
