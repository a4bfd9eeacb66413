package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/data/db"
	"github.com/yungbote/roomchat-backend/internal/http"
	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	dbService *db.Service
	tracing   *observability.Tracing
	cancel    context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracing, err := observability.StartTracing(ctx, log, cfg.Otel())
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	metrics := observability.Init(log, cfg.MetricsEnabled)

	dbService, err := db.Open(cfg.DB(), log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	hub := realtime.NewSSEHub(log, realtime.HubConfig{
		OutboundBuffer: cfg.OutboundBuffer,
		Heartbeat:      cfg.Heartbeat(),
	})

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(ctx, theDB, log, cfg, reposet, hub)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset, hub)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:       log,
		DB:        theDB,
		Server:    server,
		Cfg:       cfg,
		Repos:     reposet,
		Services:  serviceset,
		SSEHub:    hub,
		Metrics:   metrics,
		dbService: dbService,
		tracing:   tracing,
	}, nil
}

// Start launches background work: the cross-instance forwarder and the
// metrics collectors. Calling it twice is a no-op.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.SSEBus != nil {
		if err := a.Services.SSEBus.Subscribe(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start activity forwarder: %w", err)
		}
		a.Log.Info("Activity forwarder started", "channel", a.Cfg.RedisChannel)
	}
	var relay observability.Pinger
	if a.Services.SSEBus != nil {
		relay = a.Services.SSEBus
	}
	a.Metrics.StartCollectors(ctx, a.Log, a.DB, relay, 15*time.Second)
	return nil
}

// Run blocks serving HTTP until Close shuts the server down.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Listening", "addr", a.Cfg.Address())
	return a.Server.Run()
}

// Close ends every live stream, drains the server, then releases the bus,
// the tracer provider and the database.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.SSEHub != nil {
		if n := a.SSEHub.CloseAll(); n > 0 {
			a.Log.Info("Closed live connections", "count", n)
		}
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.SSEBus != nil {
		if err := a.Services.SSEBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus: %w", err))
		}
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	a.Log.Sync()
	return errors.Join(errs...)
}
