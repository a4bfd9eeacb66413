package app

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
	"github.com/yungbote/roomchat-backend/internal/realtime/bus"
	"github.com/yungbote/roomchat-backend/internal/services"
)

type Services struct {
	Verifier      services.CredentialVerifier
	Authenticator services.ConnectionAuthenticator
	Publisher     services.ActivityPublisher
	Threads       services.ThreadService
	Push          services.PushRegistrar

	// Nil when REDIS_ADDR is unset; the publisher then broadcasts on the local hub.
	SSEBus bus.Bus
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, sseHub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	verifier := services.NewJWTVerifier(cfg.JWTSecretKey, cfg.JWTIssuer)
	authenticator := services.NewConnectionAuthenticator(log, verifier, repos.User)

	var (
		emitter services.SSEEmitter
		sseBus  bus.Bus
	)
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		b, err := bus.NewRedisBus(ctx, log, bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			return Services{}, fmt.Errorf("init redis activity bus: %w", err)
		}
		sseBus = b
		emitter = &services.RedisEmitter{Bus: b, Log: log}
	} else {
		emitter = &services.HubEmitter{Hub: sseHub}
	}

	publisher := services.NewActivityPublisher(log, emitter)
	threads := services.NewThreadService(
		db, log,
		repos.Listing,
		repos.ChatThread,
		repos.ChatMember,
		repos.ChatMessage,
		publisher,
	)
	push := services.NewPushRegistrar(log, repos.PushToken)

	return Services{
		Verifier:      verifier,
		Authenticator: authenticator,
		Publisher:     publisher,
		Threads:       threads,
		Push:          push,
		SSEBus:        sseBus,
	}, nil
}
