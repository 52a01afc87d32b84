package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrMissingDatabaseURL is returned when DATABASE_URL is absent or empty.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

// Config captures runtime configuration for the service.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Health    HealthConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Host          string
	Port          int
	MetricsPath   string
	ShutdownGrace int

	// IgnoreStageInPath makes the Lambda adapter route on the path without the
	// API Gateway stage prefix.
	IgnoreStageInPath bool
}

// Addr is the listen address for the local server.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	URL        string
	MaxConns   int32
	ProbeQuery string
}

type HealthConfig struct {
	Timeout   time.Duration
	Workers   int
	QueueSize int
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPHost       = "0.0.0.0"
	defaultHTTPPort       = 3000
	defaultMetricsPath    = "/metrics"
	defaultShutdownGrace  = 15
	defaultMaxConns       = 15
	defaultProbeQuery     = "SELECT 1"
	defaultHealthTimeout  = 10 * time.Second
	defaultHealthWorkers  = 15
	defaultHealthQueue    = 64
	defaultServiceName    = "hellodb"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "debug"
	defaultOTelSampleRate = 1.0
)

// diagnosticVars are linker and libpq settings worth seeing in the logs of a
// freshly deployed function.
var diagnosticVars = []string{
	"LD_LIBRARY_PATH",
	"PQ_LIB_DIR",
	"PQ_INCLUDE_DIR",
	"PGSSLMODE",
}

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}

	healthCfg, err := loadHealthConfig()
	if err != nil {
		return nil, fmt.Errorf("loading health config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:      httpCfg,
		Database:  dbCfg,
		Health:    healthCfg,
		Telemetry: telCfg,
		Service:   loadServiceConfig(),
	}, nil
}

// Diagnostics reports the diagnostic environment variables. A variable that is
// not set maps to ok=false.
func Diagnostics() map[string]Diagnostic {
	out := make(map[string]Diagnostic, len(diagnosticVars))
	for _, name := range diagnosticVars {
		value, ok := os.LookupEnv(name)
		out[name] = Diagnostic{Value: value, Set: ok}
	}
	return out
}

type Diagnostic struct {
	Value string
	Set   bool
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("API_HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}
	if port <= 0 || port > 65535 {
		return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %d out of range", port)
	}

	shutdownGrace, err := getIntEnv("API_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Host:          getEnvOrDefault("API_HTTP_HOST", defaultHTTPHost),
		Port:          port,
		MetricsPath:   getEnvOrDefault("API_METRICS_PATH", defaultMetricsPath),
		ShutdownGrace: shutdownGrace,

		IgnoreStageInPath: getBoolEnv("AWS_LAMBDA_HTTP_IGNORE_STAGE_IN_PATH", false),
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return DatabaseConfig{}, ErrMissingDatabaseURL
	}

	maxConns, err := getIntEnv("DB_MAX_CONNS", defaultMaxConns)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if maxConns <= 0 {
		return DatabaseConfig{}, fmt.Errorf("invalid DB_MAX_CONNS: must be positive, got %d", maxConns)
	}

	return DatabaseConfig{
		URL:        databaseURL,
		MaxConns:   int32(maxConns),
		ProbeQuery: getEnvOrDefault("DB_PROBE_QUERY", defaultProbeQuery),
	}, nil
}

func loadHealthConfig() (HealthConfig, error) {
	timeout := defaultHealthTimeout
	if value, ok := os.LookupEnv("HEALTH_CHECK_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return HealthConfig{}, fmt.Errorf("invalid HEALTH_CHECK_TIMEOUT: %w", err)
		}
		if parsed <= 0 {
			return HealthConfig{}, fmt.Errorf("invalid HEALTH_CHECK_TIMEOUT: must be positive, got %s", parsed)
		}
		timeout = parsed
	}

	workers, err := getIntEnv("HEALTH_CHECK_WORKERS", defaultHealthWorkers)
	if err != nil {
		return HealthConfig{}, err
	}
	if workers <= 0 {
		return HealthConfig{}, fmt.Errorf("invalid HEALTH_CHECK_WORKERS: must be positive, got %d", workers)
	}

	queue, err := getIntEnv("HEALTH_CHECK_QUEUE", defaultHealthQueue)
	if err != nil {
		return HealthConfig{}, err
	}
	if queue < 0 {
		return HealthConfig{}, fmt.Errorf("invalid HEALTH_CHECK_QUEUE: must not be negative, got %d", queue)
	}

	return HealthConfig{
		Timeout:   timeout,
		Workers:   workers,
		QueueSize: queue,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", false),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", false),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
