package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/service-aggregator/internal/domain"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Log         LogConfig
	Worker      WorkerConfig
	Fetch       FetchConfig
	Aggregation AggregationConfig
	Refresh     RefreshConfig
	Overpass    OverpassConfig
	Places      PlacesConfig
	Geocoding   GeocodingConfig
	ReliefFeeds []ReliefFeedConfig
	Tracing     TracingConfig
	Metrics     MetricsConfig

	// RejectedReliefFeeds - ленты с зарезервированными или повторяющимися именами, пропущены
	RejectedReliefFeeds []string
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	SearchCacheTTL time.Duration
	GeoCacheTTL    time.Duration
	GeoCacheSize   int
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	MaxRetries        int
}

// FetchConfig - политика повторов для исходящих HTTP вызовов
type FetchConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	CapDelay       time.Duration
	MaxJitter      time.Duration
	AttemptTimeout time.Duration
	// BreakerFailures - число подряд неудачных вызовов до размыкания, 0 отключает breaker
	BreakerFailures int
	BreakerCooldown time.Duration
}

type AggregationConfig struct {
	Timeout time.Duration
	Limit   int
}

type RefreshConfig struct {
	BatchSize    int
	LeaseTTL     time.Duration
	Interval     time.Duration
	Countries    []string
	Providers    []string
	PlacesRadius int
}

type OverpassConfig struct {
	Enabled      bool
	BaseURL      string
	QueryTimeout int
	RateLimit    float64
}

type PlacesConfig struct {
	Enabled           bool
	BaseURL           string
	APIKey            string
	RadiusMeters      int
	RateLimit         float64
	DetailConcurrency int
}

type GeocodingConfig struct {
	BaseURL string
	APIKey  string
}

// ReliefFeedConfig описывает одну ленту гуманитарной организации
type ReliefFeedConfig struct {
	Name string
	URL  string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom читает конфигурацию из файла (если он есть) и переменных окружения
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("API_HOST"),
			Port:        v.GetInt("API_PORT"),
			Env:         v.GetString("API_ENV"),
			CORSOrigins: v.GetString("CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			SearchCacheTTL: time.Duration(v.GetInt("SEARCH_CACHE_TTL")) * time.Second,
			GeoCacheTTL:    time.Duration(v.GetInt("GEO_CACHE_TTL")) * time.Second,
			GeoCacheSize:   v.GetInt("GEO_CACHE_SIZE"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			MaxRetries:        v.GetInt("WORKER_MAX_RETRIES"),
		},
		Fetch: FetchConfig{
			MaxRetries:      v.GetInt("FETCH_MAX_RETRIES"),
			BaseDelay:       time.Duration(v.GetInt("FETCH_BASE_DELAY_MS")) * time.Millisecond,
			CapDelay:        time.Duration(v.GetInt("FETCH_CAP_DELAY_MS")) * time.Millisecond,
			MaxJitter:       time.Duration(v.GetInt("FETCH_MAX_JITTER_MS")) * time.Millisecond,
			AttemptTimeout:  time.Duration(v.GetInt("FETCH_ATTEMPT_TIMEOUT_MS")) * time.Millisecond,
			BreakerFailures: v.GetInt("FETCH_BREAKER_FAILURES"),
			BreakerCooldown: time.Duration(v.GetInt("FETCH_BREAKER_COOLDOWN")) * time.Second,
		},
		Aggregation: AggregationConfig{
			Timeout: time.Duration(v.GetInt("AGGREGATION_TIMEOUT_MS")) * time.Millisecond,
			Limit:   v.GetInt("AGGREGATION_LIMIT"),
		},
		Refresh: RefreshConfig{
			BatchSize:    v.GetInt("REFRESH_BATCH_SIZE"),
			LeaseTTL:     time.Duration(v.GetInt("REFRESH_LEASE_TTL")) * time.Second,
			Interval:     time.Duration(v.GetInt("REFRESH_INTERVAL")) * time.Second,
			Countries:    parseList(v.GetString("REFRESH_COUNTRIES")),
			Providers:    parseList(v.GetString("REFRESH_PROVIDERS")),
			PlacesRadius: v.GetInt("REFRESH_PLACES_RADIUS"),
		},
		Overpass: OverpassConfig{
			Enabled:      v.GetBool("OVERPASS_ENABLED"),
			BaseURL:      v.GetString("OVERPASS_BASE_URL"),
			QueryTimeout: v.GetInt("OVERPASS_QUERY_TIMEOUT"),
			RateLimit:    v.GetFloat64("OVERPASS_RATE_LIMIT"),
		},
		Places: PlacesConfig{
			Enabled:           v.GetBool("PLACES_ENABLED"),
			BaseURL:           v.GetString("PLACES_BASE_URL"),
			APIKey:            v.GetString("PLACES_API_KEY"),
			RadiusMeters:      v.GetInt("PLACES_RADIUS_METERS"),
			RateLimit:         v.GetFloat64("PLACES_RATE_LIMIT"),
			DetailConcurrency: v.GetInt("PLACES_DETAIL_CONCURRENCY"),
		},
		Geocoding: GeocodingConfig{
			BaseURL: v.GetString("GEOCODING_BASE_URL"),
			APIKey:  v.GetString("GEOCODING_API_KEY"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("TRACING_ENABLED"),
			ServiceName: v.GetString("TRACING_SERVICE_NAME"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}

	cfg.ReliefFeeds, cfg.RejectedReliefFeeds = parseReliefFeeds(v.GetString("RELIEF_FEEDS"))

	// Geocoding по умолчанию использует ключ Places
	if cfg.Geocoding.APIKey == "" {
		cfg.Geocoding.APIKey = cfg.Places.APIKey
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "services")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)

	v.SetDefault("SEARCH_CACHE_TTL", 300)
	v.SetDefault("GEO_CACHE_TTL", 60*60*24*30)
	v.SetDefault("GEO_CACHE_SIZE", 4096)

	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("WORKER_CONSUMER_GROUP", "service-refresh-workers")
	v.SetDefault("WORKER_STREAM_READ_TIMEOUT", 5000)
	v.SetDefault("WORKER_MAX_RETRIES", 3)

	v.SetDefault("FETCH_MAX_RETRIES", 3)
	v.SetDefault("FETCH_BASE_DELAY_MS", 300)
	v.SetDefault("FETCH_CAP_DELAY_MS", 3000)
	v.SetDefault("FETCH_MAX_JITTER_MS", 250)
	v.SetDefault("FETCH_ATTEMPT_TIMEOUT_MS", 4000)
	v.SetDefault("FETCH_BREAKER_FAILURES", 5)
	v.SetDefault("FETCH_BREAKER_COOLDOWN", 30)

	v.SetDefault("AGGREGATION_TIMEOUT_MS", 8000)
	v.SetDefault("AGGREGATION_LIMIT", 5)

	v.SetDefault("REFRESH_BATCH_SIZE", 10)
	v.SetDefault("REFRESH_LEASE_TTL", 600)
	v.SetDefault("REFRESH_INTERVAL", 6*60*60)
	v.SetDefault("REFRESH_PROVIDERS", "OSM")
	v.SetDefault("REFRESH_PLACES_RADIUS", 50000)

	v.SetDefault("OVERPASS_ENABLED", true)
	v.SetDefault("OVERPASS_BASE_URL", "https://overpass-api.de/api/interpreter")
	v.SetDefault("OVERPASS_QUERY_TIMEOUT", 25)
	v.SetDefault("OVERPASS_RATE_LIMIT", 1)

	v.SetDefault("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("PLACES_RADIUS_METERS", 10000)
	v.SetDefault("PLACES_RATE_LIMIT", 10)
	v.SetDefault("PLACES_DETAIL_CONCURRENCY", 4)

	v.SetDefault("GEOCODING_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json")

	v.SetDefault("TRACING_SERVICE_NAME", "service-aggregator")

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseReliefFeeds разбирает строку вида "UNHCR=https://...,WFP=https://...".
// Имена встроенных источников (manual, OSM, GooglePlaces) и повторы возвращаются в rejected.
func parseReliefFeeds(s string) (feeds []ReliefFeedConfig, rejected []string) {
	seen := make(map[string]struct{})
	for _, item := range parseList(s) {
		name, url, ok := strings.Cut(item, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup || domain.IsReservedSourceName(name) {
			rejected = append(rejected, name)
			continue
		}
		seen[key] = struct{}{}
		feeds = append(feeds, ReliefFeedConfig{Name: name, URL: url})
	}
	return feeds, rejected
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// DSN - строка подключения в формате key=value
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.DBName,
		d.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
