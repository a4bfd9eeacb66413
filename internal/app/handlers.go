package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/http"
	httpH "github.com/yungbote/roomchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/roomchat-backend/internal/http/middleware"
	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Realtime *httpH.RealtimeHandler
	Chat     *httpH.ChatHandler
	Push     *httpH.PushHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Authenticator),
	}
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db, sseHub),
		Realtime: httpH.NewRealtimeHandler(log, sseHub, services.Threads),
		Chat:     httpH.NewChatHandler(services.Threads),
		Push:     httpH.NewPushHandler(services.Push),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		ServiceName:     cfg.OtelServiceName,
		Tracing:         cfg.OtelEnabled,
		AllowedOrigins:  cfg.AllowedOrigins,
		GatewayKey:      cfg.PushGatewayKey,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		RealtimeHandler: handlers.Realtime,
		ChatHandler:     handlers.Chat,
		PushHandler:     handlers.Push,
		HealthHandler:   handlers.Health,
	}, cfg.Address())
}
