package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the dashboard API.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MinIO     MinIOConfig
	Settings  SettingsConfig
	Dashboard DashboardConfig
	Metrics   MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig holds the operator-supplied connection to the pipeline database.
// AccessKey is used as the connection password when set.
type StoreConfig struct {
	URL       string
	AccessKey string
	MaxConns  int32
}

// Configured reports whether both the URL and the access key are present.
func (s StoreConfig) Configured() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.AccessKey) != ""
}

// MinIOConfig carries object storage connection and preview settings.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	PresignTTL      time.Duration
	ListLimit       int
}

// SettingsConfig points at the local preferences database.
type SettingsConfig struct {
	Path string
}

// DashboardConfig groups presentation settings.
type DashboardConfig struct {
	Timezone string
}

// Location resolves the configured display timezone, falling back to the host zone.
func (d DashboardConfig) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("DASH_API_HOST", "0.0.0.0"),
			Port:         getInt("DASH_API_PORT", 8080),
			ReadTimeout:  getDuration("DASH_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("DASH_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("DASH_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			URL:       getString("DASH_STORE_URL", ""),
			AccessKey: getString("DASH_STORE_KEY", ""),
			MaxConns:  int32(getInt("DASH_STORE_MAX_CONNS", 4)),
		},
		MinIO: loadMinIOConfig(),
		Settings: SettingsConfig{
			Path: getString("DASH_SETTINGS_PATH", "./dashboard-settings.db"),
		},
		Dashboard: DashboardConfig{
			Timezone: getString("DASH_TIMEZONE", ""),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("DASH_METRICS_PATH", "/metrics"),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid DASH_API_PORT %d", cfg.Server.Port)
	}
	if cfg.MinIO.Bucket == "" {
		return Config{}, fmt.Errorf("MINIO_BUCKET must not be empty")
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadMinIOConfig() MinIOConfig {
	limit := getInt("DASH_PREVIEW_LIST_LIMIT", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	return MinIOConfig{
		Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
		AccessKeyID:     getString("MINIO_ACCESS_KEY", ""),
		SecretAccessKey: getString("MINIO_SECRET_KEY", ""),
		Bucket:          getString("MINIO_BUCKET", "user-uploads"),
		UseSSL:          getBool("MINIO_USE_SSL", false),
		Region:          getString("MINIO_REGION", ""),
		PresignTTL:      getDuration("DASH_PREVIEW_URL_TTL", time.Hour),
		ListLimit:       limit,
	}
}
