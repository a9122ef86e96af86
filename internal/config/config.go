package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultIconBaseURL is where avalanche.org publishes the {level}.png danger icons.
const DefaultIconBaseURL = "https://nac-web-platforms.s3.us-west-1.amazonaws.com/assets/danger-icons"

// Config holds all service settings, populated from environment variables.
type Config struct {
	ForecastsURI string
	FeedsURI     string
	ZonesConfig  string
	BaseURL      string
	IconBaseURL  string

	FeedLimit      int
	Workers        int
	UpdateInterval time.Duration // zero disables the periodic updater

	// Upstream forecast API.
	AvalancheAPIURL string
	FetchTimeout    time.Duration

	// Storage backends.
	StorageTimeout time.Duration
	S3Endpoint     string
	S3Region       string
	FeedCacheTTL   time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Forecast-saved notifications.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	storageTimeout, err := parsePositiveDuration("STORAGE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("FEED_CACHE_TTL", "30s")
	if err != nil {
		return nil, err
	}
	updateInterval, err := parseDuration("UPDATE_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	feedLimit, err := parsePositiveInt("FEED_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ForecastsURI:   sharedcfg.EnvOrDefault("FORECASTS_URI", "forecasts"),
		FeedsURI:       sharedcfg.EnvOrDefault("FEEDS_URI", "feeds"),
		ZonesConfig:    sharedcfg.EnvOrDefault("ZONES_CONFIG", "avalanche_centers.yaml"),
		BaseURL:        sharedcfg.EnvOrDefault("BASE_URL", "http://localhost:5000"),
		IconBaseURL:    sharedcfg.EnvOrDefault("ICON_BASE_URL", DefaultIconBaseURL),
		FeedLimit:      feedLimit,
		Workers:        workers,
		UpdateInterval: updateInterval,

		AvalancheAPIURL: sharedcfg.EnvOrDefault("AVALANCHE_API_URL", "https://api.avalanche.org/v2/public"),
		FetchTimeout:    fetchTimeout,

		StorageTimeout: storageTimeout,
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       os.Getenv("S3_REGION"),
		FeedCacheTTL:   cacheTTL,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":5000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "avyrss.forecast-events"),
	}

	if cfg.ForecastsURI == "" {
		return nil, errors.New("FORECASTS_URI is required")
	}
	if cfg.FeedsURI == "" {
		return nil, errors.New("FEEDS_URI is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := parseDuration(key, fallback)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
