package realtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

// SSEClient is one live connection. Its channel set and closed flag are
// guarded by the owning hub's mutex.
type SSEClient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	Outbound  chan SSEMessage
	Logger    *logger.Logger

	channels map[string]struct{}
	closed   bool
	done     chan struct{}
}

// Done is closed once the hub has disconnected the client.
func (c *SSEClient) Done() <-chan struct{} { return c.done }
