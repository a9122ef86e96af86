package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "forecasts", cfg.ForecastsURI)
	assert.Equal(t, "feeds", cfg.FeedsURI)
	assert.Equal(t, "avalanche_centers.yaml", cfg.ZonesConfig)
	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, DefaultIconBaseURL, cfg.IconBaseURL)
	assert.Equal(t, 10, cfg.FeedLimit)
	assert.Equal(t, 4, cfg.Workers)
	assert.Zero(t, cfg.UpdateInterval)
	assert.Equal(t, "https://api.avalanche.org/v2/public", cfg.AvalancheAPIURL)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 10*time.Second, cfg.StorageTimeout)
	assert.Empty(t, cfg.S3Endpoint)
	assert.Empty(t, cfg.S3Region)
	assert.Equal(t, 30*time.Second, cfg.FeedCacheTTL)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "avyrss.forecast-events", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("FORECASTS_URI", "s3://avy-bucket/forecasts")
	t.Setenv("FEEDS_URI", "redis://localhost:6379/0?prefix=feeds")
	t.Setenv("ZONES_CONFIG", "/etc/avyrss/centers.yaml")
	t.Setenv("BASE_URL", "https://avyrss.example.com")
	t.Setenv("ICON_BASE_URL", "https://icons.example.com")
	t.Setenv("FEED_LIMIT", "25")
	t.Setenv("WORKERS", "8")
	t.Setenv("UPDATE_INTERVAL", "1h")
	t.Setenv("AVALANCHE_API_URL", "http://localhost:8081/v2/public")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("STORAGE_TIMEOUT", "3s")
	t.Setenv("S3_ENDPOINT", "http://localhost:4566")
	t.Setenv("S3_REGION", "us-west-2")
	t.Setenv("FEED_CACHE_TTL", "2m")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-events")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3://avy-bucket/forecasts", cfg.ForecastsURI)
	assert.Equal(t, "redis://localhost:6379/0?prefix=feeds", cfg.FeedsURI)
	assert.Equal(t, "/etc/avyrss/centers.yaml", cfg.ZonesConfig)
	assert.Equal(t, "https://avyrss.example.com", cfg.BaseURL)
	assert.Equal(t, "https://icons.example.com", cfg.IconBaseURL)
	assert.Equal(t, 25, cfg.FeedLimit)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, time.Hour, cfg.UpdateInterval)
	assert.Equal(t, "http://localhost:8081/v2/public", cfg.AvalancheAPIURL)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3*time.Second, cfg.StorageTimeout)
	assert.Equal(t, "http://localhost:4566", cfg.S3Endpoint)
	assert.Equal(t, "us-west-2", cfg.S3Region)
	assert.Equal(t, 2*time.Minute, cfg.FeedCacheTTL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-events", cfg.KafkaTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"FETCH_TIMEOUT", "bad"},
		{"FETCH_TIMEOUT", "0s"},
		{"STORAGE_TIMEOUT", "-1s"},
		{"FEED_CACHE_TTL", "soon"},
		{"UPDATE_INTERVAL", "-5m"},
		{"UPDATE_INTERVAL", "hourly"},
		{"FEED_LIMIT", "0"},
		{"FEED_LIMIT", "ten"},
		{"WORKERS", "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_KafkaDisabledUnlessTrue(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "yes")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
