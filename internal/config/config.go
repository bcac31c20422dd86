package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Auth    AuthConfig
	Bridge  BridgeConfig
	Limits  LimitsConfig
	Events  EventsConfig
	Store   StoreConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Addr        string
	Environment string
	LogFilePath string
}

type AuthConfig struct {
	JWTSecret string
}

// BridgeConfig points the gateway at the persistence service.
type BridgeConfig struct {
	BaseURL string
	Timeout time.Duration
}

type LimitsConfig struct {
	EventRate  float64 // inbound events per second per connection
	EventBurst int
}

type EventsConfig struct {
	Backend string // "nats", "memory" or "none"
	NatsURL string
}

type StoreConfig struct {
	Addr      string
	SQLiteDsn string
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Load reads .env if present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() *Config {
	return &Config{
		App: AppConfig{
			Addr:        getenv("HTTP_ADDR", ":8080"),
			Environment: getenv("GO_ENV", "development"),
			LogFilePath: getenv("LOG_FILE_PATH", "gateway.log"),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
		},
		Bridge: BridgeConfig{
			BaseURL: getenv("PERSISTENCE_URL", "http://localhost:8081"),
			Timeout: getenvDuration("BRIDGE_TIMEOUT", 10*time.Second),
		},
		Limits: LimitsConfig{
			EventRate:  getenvFloat("EVENT_RATE", 20),
			EventBurst: getenvInt("EVENT_BURST", 40),
		},
		Events: EventsConfig{
			Backend: getenv("EVENTS_BACKEND", "none"),
			NatsURL: getenv("NATS_URL", "nats://localhost:4222"),
		},
		Store: StoreConfig{
			Addr:      getenv("STORE_ADDR", ":8081"),
			SQLiteDsn: getenv("SQLITE_DSN", "file:chat.db?_pragma=foreign_keys(ON)"),
		},
		Tracing: TracingConfig{
			Enabled:  getenv("OTEL_ENABLED", "") == "true",
			Endpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	if v, err := strconv.Atoi(getenv(key, "")); err == nil {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(getenv(key, ""), 64); err == nil {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getenv(key, "")); err == nil {
		return v
	}
	return def
}
