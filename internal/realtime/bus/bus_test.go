package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

func TestEnvelopeKeepsScope(t *testing.T) {
	threadID := uuid.New()
	raw, err := encode("a", realtime.NewActivityMessage(realtime.ThreadChannel(threadID), &threadID))
	require.NoError(t, err)

	msg, origin, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", origin)
	assert.Equal(t, realtime.ThreadChannel(threadID), msg.Channel)
	p, ok := msg.Data.(realtime.ActivityPayload)
	require.True(t, ok)
	require.NotNil(t, p.Scope)
	assert.Equal(t, threadID, *p.Scope)
}

func TestEnvelopeInboxWide(t *testing.T) {
	raw, err := encode("", realtime.NewActivityMessage("inbox:x", nil))
	require.NoError(t, err)
	msg, _, err := decode(raw)
	require.NoError(t, err)
	assert.Nil(t, msg.Data.(realtime.ActivityPayload).Scope)
}

func TestDecodeRejectsBadEnvelopes(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      `nope`,
		"no channel":    `{"v":1,"event":"chat-activity"}`,
		"wrong version": `{"v":2,"channel":"inbox:x"}`,
		"bad scope":     `{"v":1,"channel":"inbox:x","scope":"zzz"}`,
		"other event":   `{"v":1,"channel":"inbox:x","event":"connected"}`,
	} {
		_, _, err := decode([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b, err := NewRedisBus(ctx, logger.NewNop(), RedisConfig{Addr: addr, Channel: "inbox-activity-test-" + uuid.NewString()})
	require.NoError(t, err)
	defer b.Close()

	got := make(chan realtime.SSEMessage, 1)
	require.NoError(t, b.Subscribe(ctx, func(m realtime.SSEMessage) { got <- m }))

	userID := uuid.New()
	require.NoError(t, b.Publish(ctx, realtime.NewActivityMessage(realtime.InboxChannel(userID), nil)))

	select {
	case m := <-got:
		assert.Equal(t, realtime.InboxChannel(userID), m.Channel)
		assert.Equal(t, realtime.SSEEventChatActivity, m.Event)
	case <-ctx.Done():
		t.Fatal("timed out waiting for relayed message")
	}
}
