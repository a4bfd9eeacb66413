package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/roomchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/roomchat-backend/internal/http/middleware"
	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

const streamPath = "/api/inbox/stream"

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	Tracing        bool
	AllowedOrigins []string
	GatewayKey     string
	Metrics        *observability.Metrics

	AuthMiddleware  *httpMW.AuthMiddleware
	RealtimeHandler *httpH.RealtimeHandler
	ChatHandler     *httpH.ChatHandler
	PushHandler     *httpH.PushHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "roomchat"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, streamPath))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Push gateway (internal)
	if cfg.PushHandler != nil {
		internal := r.Group("/internal", httpMW.RequireGatewayKey(cfg.GatewayKey))
		internal.GET("/push/users/:id/tokens", cfg.PushHandler.TokensFor)
	}

	protected := r.Group("/api")
	{
		// Every route below needs a credential, including the stream.
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/inbox/stream", cfg.RealtimeHandler.Stream)
			protected.POST("/inbox/connections/:connID/threads/:threadID", cfg.RealtimeHandler.JoinThread)
			protected.DELETE("/inbox/connections/:connID/threads/:threadID", cfg.RealtimeHandler.LeaveThread)
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.GET("/chat/threads", cfg.ChatHandler.ListThreads)
			protected.POST("/chat/threads", cfg.ChatHandler.StartThread)
			protected.GET("/chat/threads/:id/messages", cfg.ChatHandler.ListMessages)
			protected.POST("/chat/threads/:id/messages", cfg.ChatHandler.AppendMessage)
			protected.POST("/chat/threads/:id/read", cfg.ChatHandler.MarkRead)
			protected.DELETE("/chat/threads/:id", cfg.ChatHandler.DeleteThread)
		}

		// Push tokens
		if cfg.PushHandler != nil {
			protected.POST("/push/tokens", cfg.PushHandler.Register)
			protected.DELETE("/push/tokens", cfg.PushHandler.Unregister)
		}
	}

	return r
}
