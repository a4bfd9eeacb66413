package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/roomchat-backend/internal/data/db"
	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/platform/envutil"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime/bus"
)

// Config is read from an optional YAML file (CONFIG_FILE) and then from the
// environment. A set environment variable always wins over the file.
type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	DBDriver         string `yaml:"db_driver"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresName     string `yaml:"postgres_name"`
	SQLitePath       string `yaml:"sqlite_path"`

	JWTSecretKey string `yaml:"jwt_secret_key"`
	JWTIssuer    string `yaml:"jwt_issuer"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisChannel  string `yaml:"redis_channel"`

	HeartbeatSeconds int `yaml:"sse_heartbeat_seconds"`
	OutboundBuffer   int `yaml:"sse_outbound_buffer"`

	PushGatewayKey string   `yaml:"push_gateway_key"`
	AllowedOrigins []string `yaml:"cors_allowed_origins"`

	OtelEnabled     bool    `yaml:"otel_enabled"`
	OtelServiceName string  `yaml:"otel_service_name"`
	OtelEnvironment string  `yaml:"otel_environment"`
	OtelEndpoint    string  `yaml:"otel_endpoint"`
	OtelHeaders     string  `yaml:"otel_headers"`
	OtelInsecure    bool    `yaml:"otel_insecure"`
	OtelSampleRatio float64 `yaml:"otel_sampler_ratio"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

func defaultConfig() Config {
	return Config{
		Port:             "8080",
		LogMode:          "development",
		DBDriver:         "postgres",
		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "postgres",
		PostgresName:     "roomchat",
		SQLitePath:       "roomchat.db",
		RedisChannel:     bus.DefaultChannel,
		HeartbeatSeconds: 15,
		OutboundBuffer:   16,
		OtelServiceName:  "roomchat",
		OtelSampleRatio:  1,
		MetricsEnabled:   true,
	}
}

// LoadConfig builds the config. The logger may be nil when called before the
// logger exists (the log mode itself comes from here).
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)

	cfg.DBDriver = envutil.String("DB_DRIVER", cfg.DBDriver)
	cfg.PostgresHost = envutil.String("POSTGRES_HOST", cfg.PostgresHost)
	cfg.PostgresPort = envutil.String("POSTGRES_PORT", cfg.PostgresPort)
	cfg.PostgresUser = envutil.String("POSTGRES_USER", cfg.PostgresUser)
	cfg.PostgresPassword = envutil.String("POSTGRES_PASSWORD", cfg.PostgresPassword)
	cfg.PostgresName = envutil.String("POSTGRES_NAME", cfg.PostgresName)
	cfg.SQLitePath = envutil.String("SQLITE_PATH", cfg.SQLitePath)

	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.JWTIssuer = envutil.String("JWT_ISSUER", cfg.JWTIssuer)

	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envutil.Int("REDIS_DB", cfg.RedisDB)
	cfg.RedisChannel = envutil.String("REDIS_CHANNEL", cfg.RedisChannel)

	cfg.HeartbeatSeconds = envutil.Int("SSE_HEARTBEAT_SECONDS", cfg.HeartbeatSeconds)
	cfg.OutboundBuffer = envutil.Int("SSE_OUTBOUND_BUFFER", cfg.OutboundBuffer)

	cfg.PushGatewayKey = envutil.String("PUSH_GATEWAY_KEY", cfg.PushGatewayKey)
	cfg.AllowedOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)

	cfg.OtelEnabled = envutil.Bool("OTEL_ENABLED", cfg.OtelEnabled)
	cfg.OtelServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.OtelServiceName)
	cfg.OtelEnvironment = envutil.String("OTEL_ENVIRONMENT", cfg.OtelEnvironment)
	cfg.OtelEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)
	cfg.OtelHeaders = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.OtelHeaders)
	cfg.OtelInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OtelInsecure)
	cfg.OtelSampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.OtelSampleRatio)

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func (c Config) Address() string { return ":" + strings.TrimPrefix(c.Port, ":") }

func (c Config) Heartbeat() time.Duration {
	if c.HeartbeatSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

func (c Config) DB() db.Config {
	return db.Config{
		Driver:           strings.ToLower(strings.TrimSpace(c.DBDriver)),
		PostgresHost:     c.PostgresHost,
		PostgresPort:     c.PostgresPort,
		PostgresUser:     c.PostgresUser,
		PostgresPassword: c.PostgresPassword,
		PostgresName:     c.PostgresName,
		SQLitePath:       c.SQLitePath,
	}
}

func (c Config) Otel() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.OtelEnabled,
		ServiceName: c.OtelServiceName,
		Environment: c.OtelEnvironment,
		Endpoint:    c.OtelEndpoint,
		Headers:     observability.ParseHeaders(c.OtelHeaders),
		Insecure:    c.OtelInsecure,
		SampleRatio: c.OtelSampleRatio,
	}
}
