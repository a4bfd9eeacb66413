package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

// Metrics holds the process-wide counters. A nil *Metrics is valid and
// records nothing, so callers never need to check whether metrics are on.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	connections     *Gauge
	connRejected    *CounterVec
	channelJoins    *CounterVec
	broadcasts      *CounterVec
	droppedMessages *CounterVec
	publishes       *CounterVec
	publishLatency  *HistogramVec
	pushRegister    *CounterVec

	dbUp    *Gauge
	redisUp *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the global registry when enabled. Later calls return the same instance.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("rc_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"rc_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight:     NewGauge("rc_api_inflight_requests", "In-flight API requests, excluding open streams."),
		connections:     NewGauge("rc_realtime_connections", "Live realtime connections on this instance."),
		connRejected:    NewCounterVec("rc_realtime_connections_rejected_total", "Rejected connection attempts by reason.", []string{"reason"}),
		channelJoins:    NewCounterVec("rc_realtime_channel_joins_total", "Channel joins by channel kind.", []string{"kind"}),
		broadcasts:      NewCounterVec("rc_realtime_broadcasts_total", "Broadcasts by channel kind.", []string{"kind"}),
		droppedMessages: NewCounterVec("rc_realtime_dropped_messages_total", "Messages dropped on full outbound queues.", []string{"kind"}),
		publishes:       NewCounterVec("rc_activity_published_total", "Activity events published by status.", []string{"status"}),
		publishLatency: NewHistogramVec(
			"rc_activity_publish_duration_seconds",
			"Time spent fanning out one committed mutation.",
			nil,
			[]float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		),
		pushRegister: NewCounterVec("rc_push_registrations_total", "Push token registrations by outcome.", []string{"outcome"}),
		dbUp:         NewGauge("rc_db_up", "Database ping status (1 up, 0 down)."),
		redisUp:      NewGauge("rc_redis_up", "Redis ping status (1 up, 0 down)."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.connections, m.connRejected, m.channelJoins, m.broadcasts, m.droppedMessages,
		m.publishes, m.publishLatency, m.pushRegister,
		m.dbUp, m.redisUp,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) ConnectionRejected(reason string) {
	if m != nil {
		m.connRejected.Inc(reason)
	}
}

func (m *Metrics) ChannelJoined(channel string) {
	if m != nil {
		m.channelJoins.Inc(channelKind(channel))
	}
}

func (m *Metrics) Broadcast(channel string) {
	if m != nil {
		m.broadcasts.Inc(channelKind(channel))
	}
}

func (m *Metrics) MessageDropped(channel string) {
	if m != nil {
		m.droppedMessages.Inc(channelKind(channel))
	}
}

func (m *Metrics) ObservePublish(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.publishes.Inc(status)
	m.publishLatency.Observe(dur.Seconds())
}

func (m *Metrics) PushRegistration(outcome string) {
	if m != nil {
		m.pushRegister.Inc(outcome)
	}
}

// channelKind keeps label cardinality bounded: "inbox:<uuid>" becomes "inbox".
func channelKind(channel string) string {
	if i := strings.IndexByte(channel, ':'); i > 0 {
		return channel[:i]
	}
	return "other"
}

// Pinger is anything whose reachability feeds an up gauge.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartCollectors pings the database and, when set, the activity relay on an
// interval until ctx ends.
func (m *Metrics) StartCollectors(ctx context.Context, log *logger.Logger, db *gorm.DB, relay Pinger, interval time.Duration) {
	if m == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectOnce(ctx, log, db, relay)
			}
		}
	}()
}

func (m *Metrics) collectOnce(ctx context.Context, log *logger.Logger, db *gorm.DB, relay Pinger) {
	if db != nil {
		up := 0.0
		if sqlDB, err := db.DB(); err == nil && sqlDB.PingContext(ctx) == nil {
			up = 1
		} else if log != nil {
			log.Warn("metrics: database ping failed")
		}
		m.dbUp.Set(up)
	}
	if relay != nil {
		if err := relay.Ping(ctx); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
	}
}
