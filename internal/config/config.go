// Package config provides environment-aware configuration for the worker processes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Route is a per-message-type routing override (MessageBus.Routing.Routes.<TypeName>.*).
type Route struct {
	Destination string
	RoutingKey  string
	Subject     string
	Metadata    map[string]string
}

// Routing configures provider selection and message-type routing.
type Routing struct {
	Provider           string // "Rabbit", "ServiceBus", "Auto" (default)
	DefaultDestination string
	DefaultRoutingKey  string
	Routes             map[string]Route
}

// Consumer configures the generic consumer's concurrency and queue binding.
type Consumer struct {
	Queue         string
	Concurrency   int
	MaxRetries    int
	PrefetchCount int
}

// ConnectionStrings holds the two supported broker connection strings.
type ConnectionStrings struct {
	Messaging  string // topic/exchange broker (RabbitMQ)
	ServiceBus string // cloud queue/topic broker (Azure Service Bus)
	Postgres   string
}

// Config holds all configuration recognized by the bus and the worker processes.
type Config struct {
	Env Environment

	Routing           Routing
	Consumer          Consumer
	ConnectionStrings ConnectionStrings

	LogLevel  string
	LogFormat string

	StuckInProgressAfter time.Duration
	ReaperInterval       time.Duration
	ReplayMaxParallel    int

	MetricsAddr    string
	MigrationsPath string
}

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// Load reads configuration from the environment, optionally overlaid by a .env file
// named by ENV_FILE (defaults to ".env"; missing file is not an error).
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Env: Environment(getEnv("APP_ENV", string(Development))),
	}

	cfg.Routing = Routing{
		Provider:           getEnv("MESSAGEBUS_ROUTING_PROVIDER", "Auto"),
		DefaultDestination: getEnv("MESSAGEBUS_ROUTING_DEFAULTDESTINATION", ""),
		DefaultRoutingKey:  getEnv("MESSAGEBUS_ROUTING_DEFAULTROUTINGKEY", ""),
		Routes:             loadRoutesFromEnv(),
	}

	cfg.Consumer = Consumer{
		Queue:         getEnv("MESSAGEBUS_CONSUMER_QUEUE", ""),
		Concurrency:   getIntEnv("MESSAGEBUS_CONSUMER_CONCURRENCY", 5),
		MaxRetries:    getIntEnv("MESSAGEBUS_CONSUMER_MAXRETRIES", 3),
		PrefetchCount: getIntEnv("MESSAGEBUS_CONSUMER_PREFETCHCOUNT", 0),
	}
	if cfg.Consumer.PrefetchCount == 0 {
		cfg.Consumer.PrefetchCount = cfg.Consumer.Concurrency
	}

	cfg.ConnectionStrings = ConnectionStrings{
		Messaging:  getEnv("CONNECTIONSTRINGS_MESSAGING", ""),
		ServiceBus: getEnv("CONNECTIONSTRINGS_SERVICEBUS", ""),
		Postgres:   getEnv("CONNECTIONSTRINGS_POSTGRES", ""),
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	cfg.StuckInProgressAfter = getDurationEnv("REPLAY_STUCK_IN_PROGRESS_AFTER", 15*time.Minute)
	cfg.ReaperInterval = getDurationEnv("REPLAY_REAPER_INTERVAL", time.Minute)
	cfg.ReplayMaxParallel = getIntEnv("REPLAY_MAX_PARALLEL", 10)

	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9100")
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", "migrations")

	return cfg, nil
}

// loadRoutesFromEnv scans MESSAGEBUS_ROUTING_ROUTES_<TYPE>_{DESTINATION,ROUTINGKEY,SUBJECT,METADATA_<K>}.
func loadRoutesFromEnv() map[string]Route {
	routes := map[string]Route{}
	const prefix = "MESSAGEBUS_ROUTING_ROUTES_"
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], prefix) {
			continue
		}
		rest := strings.TrimPrefix(parts[0], prefix)
		segs := strings.SplitN(rest, "_", 2)
		if len(segs) != 2 {
			continue
		}
		typeName, field := segs[0], segs[1]
		route := routes[typeName]
		switch {
		case field == "DESTINATION":
			route.Destination = parts[1]
		case field == "ROUTINGKEY":
			route.RoutingKey = parts[1]
		case field == "SUBJECT":
			route.Subject = parts[1]
		case strings.HasPrefix(field, "METADATA_"):
			if route.Metadata == nil {
				route.Metadata = map[string]string{}
			}
			route.Metadata[strings.TrimPrefix(field, "METADATA_")] = parts[1]
		}
		routes[typeName] = route
	}
	return routes
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
