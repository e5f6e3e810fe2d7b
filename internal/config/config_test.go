package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("DEFAULT_TREND_DAYS", "")

	cfg := Load()
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, BackendFile, cfg.StoreBackend)
	require.Equal(t, "measurements.json", cfg.MeasurementsFile)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, 30, cfg.DefaultTrendDays)
	require.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	require.NoError(t, cfg.Validate())
}

func TestCORSAllowCredentials(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "")
	require.False(t, Load().CORSAllowCredentials())

	t.Setenv("CORS_ORIGINS", "https://a.example, *")
	require.False(t, Load().CORSAllowCredentials())

	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	require.True(t, Load().CORSAllowCredentials())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	t.Setenv("DEFAULT_TREND_DAYS", "7")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	require.Equal(t, BackendSQLite, cfg.StoreBackend)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 7, cfg.DefaultTrendDays)
	require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	require.Len(t, cfg.CORSOrigins, 2)
}

func TestLoadIgnoresUnparseableNumbers(t *testing.T) {
	t.Setenv("DEFAULT_TREND_DAYS", "thirty")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()
	require.Equal(t, 30, cfg.DefaultTrendDays)
	require.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		StoreBackend:     "redis",
		DefaultTrendDays: 0,
		KafkaBrokers:     []string{"kafka:9092"},
		ShutdownTimeout:  time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown STORE_BACKEND "redis"`)
	require.Contains(t, err.Error(), "DEFAULT_TREND_DAYS")
	require.Contains(t, err.Error(), "JWT_SECRET")
	require.Contains(t, err.Error(), "MEASUREMENTS_TOPIC")
}
