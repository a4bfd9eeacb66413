package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisBus relays activity over one Redis pub/sub channel.
type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string
}

var errBusClosed = errors.New("activity bus not initialized")

func NewRedisBus(ctx context.Context, log *logger.Logger, cfg RedisConfig) (*RedisBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        strings.TrimSpace(cfg.Addr),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	origin := uuid.NewString()
	return &RedisBus{
		log:     log.With("component", "RedisActivityBus", "origin", origin),
		rdb:     rdb,
		channel: channel,
		origin:  origin,
	}, nil
}

func (b *RedisBus) Channel() string { return b.channel }

func (b *RedisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return errBusClosed
	}
	raw, err := encode(b.origin, msg)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(realtime.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return errBusClosed
	}
	if fn == nil {
		return fmt.Errorf("subscriber callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	go b.relay(ctx, sub, fn)
	return nil
}

// relay runs until ctx ends or the client closes. go-redis resubscribes on
// its own after a dropped connection.
func (b *RedisBus) relay(ctx context.Context, sub *goredis.PubSub, fn func(realtime.SSEMessage)) {
	defer sub.Close()
	in := sub.Channel(goredis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			msg, origin, err := decode([]byte(m.Payload))
			if err != nil {
				b.log.Warn("dropping bad activity envelope", "from", origin, "error", err)
				continue
			}
			fn(msg)
		}
	}
}

func (b *RedisBus) Ping(ctx context.Context) error {
	if b == nil || b.rdb == nil {
		return errBusClosed
	}
	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
