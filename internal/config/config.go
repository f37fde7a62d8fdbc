// Package config loads the service's runtime configuration from
// environment variables: a typed Config assembled from
// getEnv/getInt/getBool/getDuration helpers, validated once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration for the geocoverd service.
type Config struct {
	Environment string
	Server      ServerConfig
	Geo         GeoConfig
	Redis       RedisConfig
	MySQL       MySQLConfig
	MQTT        MQTTConfig
	CORS        CORSConfig
	Monitoring  MonitoringConfig
}

// ServerConfig configures the HTTP surface (internal/httpapi).
type ServerConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// GeoConfig configures the coverer/compressor defaults.
type GeoConfig struct {
	// DefaultPrecision is used when a request does not specify one.
	DefaultPrecision int
	// MaxPrecision bounds what a caller may request of the /cover
	// endpoint; precision 12 over large polygons produces >10^10 cells,
	// so the HTTP surface rejects requests above this bound, which may sit
	// below the codec's hard maximum of 12.
	MaxPrecision int
	// CoverWorkers bounds the coverer's latitude-row worker pool. Zero
	// defers to runtime.GOMAXPROCS(0).
	CoverWorkers int
	// CompressMinLevel and CompressMaxLevel are the default compressor
	// precision bounds.
	CompressMinLevel int
	CompressMaxLevel int
}

// RedisConfig configures the compress/cover result cache
// (internal/cache).
type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// MySQLConfig configures the coverer call audit log (internal/audit).
type MySQLConfig struct {
	Enabled      bool
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
}

// MQTTConfig configures the geohash-stream ingestion pipeline
// (internal/ingest).
type MQTTConfig struct {
	Enabled      bool
	URL          string
	ClientID     string
	Username     string
	Password     string
	Topic        string
	ResultTopic  string
	CleanSession bool
	DebounceTime time.Duration
}

// CORSConfig configures the HTTP surface's allowed origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// MonitoringConfig configures the Prometheus metrics endpoint.
type MonitoringConfig struct {
	MetricsEnabled bool
	MetricsPort    string
}

// Load builds a Config from environment variables, applying defaults for
// anything unset, and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Address:        getEnv("SERVER_ADDRESS", ":8090"),
			ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 2.0),
			RateLimitBurst: getInt("RATE_LIMIT_BURST", 5),
		},
		Geo: GeoConfig{
			DefaultPrecision: getInt("GEO_DEFAULT_PRECISION", 6),
			MaxPrecision:     getInt("GEO_MAX_PRECISION", 9),
			CoverWorkers:     getInt("COVER_WORKERS", 0),
			CompressMinLevel: getInt("COMPRESS_MIN_LEVEL", 1),
			CompressMaxLevel: getInt("COMPRESS_MAX_LEVEL", 12),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", true),
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			PoolSize: getInt("REDIS_POOL_SIZE", 20),
			TTL:      getDuration("REDIS_CACHE_TTL", 15*time.Minute),
		},
		MySQL: MySQLConfig{
			Enabled:      getBool("MYSQL_ENABLED", false),
			DSN:          getEnv("MYSQL_DSN", ""),
			MaxIdleConns: getInt("MYSQL_MAX_IDLE_CONNS", 5),
			MaxOpenConns: getInt("MYSQL_MAX_OPEN_CONNS", 20),
		},
		MQTT: MQTTConfig{
			Enabled:      getBool("MQTT_ENABLED", false),
			URL:          getEnv("MQTT_URL", "tcp://localhost:1883"),
			ClientID:     getEnv("MQTT_CLIENT_ID", "geocoverd"),
			Username:     getEnv("MQTT_USERNAME", ""),
			Password:     getEnv("MQTT_PASSWORD", ""),
			Topic:        getEnv("MQTT_TOPIC", "geocover/cells/+"),
			ResultTopic:  getEnv("MQTT_RESULT_TOPIC", "geocover/compressed"),
			CleanSession: getBool("MQTT_CLEAN_SESSION", true),
			DebounceTime: getDuration("MQTT_DEBOUNCE", 2*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: getBool("METRICS_ENABLED", true),
			MetricsPort:    getEnv("METRICS_PORT", "9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}
	if c.Geo.DefaultPrecision < 1 || c.Geo.DefaultPrecision > 12 {
		return fmt.Errorf("GEO_DEFAULT_PRECISION must be between 1 and 12")
	}
	if c.Geo.MaxPrecision < 1 || c.Geo.MaxPrecision > 12 {
		return fmt.Errorf("GEO_MAX_PRECISION must be between 1 and 12")
	}
	if c.Geo.DefaultPrecision > c.Geo.MaxPrecision {
		return fmt.Errorf("GEO_DEFAULT_PRECISION must not exceed GEO_MAX_PRECISION")
	}
	if c.Geo.CompressMinLevel < 1 || c.Geo.CompressMinLevel > c.Geo.CompressMaxLevel {
		return fmt.Errorf("COMPRESS_MIN_LEVEL must be between 1 and COMPRESS_MAX_LEVEL")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when REDIS_ENABLED=true")
	}
	if c.MySQL.Enabled && c.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required when MYSQL_ENABLED=true")
	}
	if c.MQTT.Enabled && c.MQTT.URL == "" {
		return fmt.Errorf("MQTT_URL is required when MQTT_ENABLED=true")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// LogLevel returns the configured logrus level name.
func LogLevel() string {
	return getEnv("LOG_LEVEL", "info")
}

// IsDevelopment reports whether ENVIRONMENT is "development".
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
