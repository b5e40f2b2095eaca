package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p@ss"
  name: "bagtrace"
kafka:
  host: "localhost"
  port: 9092
  luggage_reported_topic_name: "luggage.reported"
redis:
  host: "localhost"
  port: 6379
log:
  level: "debug"
bagtrace:
  http_addr: ":8080"
  worker_http_addr: ":8081"
  kafka_consumer_group: "bag-worker"
  route_cache_ttl_seconds: 600
  embed_backoff_1_seconds: 60
providers:
  aviationstack:
    api_key: "from-yaml"
    rate_limit_per_minute: 100
  amadeus:
    client_id: "id"
    timeout_seconds: 3
embedder:
  base_url: "http://ml:8001"
matching:
  top_k: 7
  threshold: 0.85
verification:
  verified_threshold: 45
`

func writeConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "luggage.reported", cfg.Kafka.LuggageReportedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.BagTrace.HTTPAddr)
	require.Equal(t, 600, cfg.BagTrace.RouteCacheTTLSeconds)
	require.Equal(t, 100, cfg.Providers.Aviationstack.RateLimitPerMinute)
	require.Equal(t, 3, cfg.Providers.Amadeus.TimeoutSeconds)
	require.Equal(t, 7, cfg.Matching.TopK)
	require.InDelta(t, 0.85, cfg.Matching.Threshold, 1e-9)
	require.Equal(t, 45, cfg.Verification.VerifiedThreshold)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvOverlay(t *testing.T) {
	t.Setenv(EnvAviationstackAPIKey, "from-env")
	t.Setenv(EnvAmadeusClientSecret, "secret")
	t.Setenv(EnvDatabasePassword, "")

	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Providers.Aviationstack.APIKey)
	require.Equal(t, "id", cfg.Providers.Amadeus.ClientID)
	require.Equal(t, "secret", cfg.Providers.Amadeus.ClientSecret)
	// пустая переменная не затирает значение из файла
	require.Equal(t, "p@ss", cfg.Database.Password)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config file")

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("database: ["), 0o600))
	_, err = LoadConfig(p)
	require.ErrorContains(t, err, "unmarshal YAML")
}

func TestHelpers(t *testing.T) {
	db := DatabaseConfig{Host: "pg", Port: 5432, Username: "u", Password: "p@ss", DBName: "bagtrace"}
	require.Equal(t, "postgres://u:p%40ss@pg:5432/bagtrace?sslmode=disable", db.ConnString())

	db.SSLMode = "require"
	require.Contains(t, db.ConnString(), "sslmode=require")

	require.Equal(t, []string{"kafka:9092"}, KafkaConfig{Host: "kafka", Port: 9092}.Brokers())
	require.Equal(t, "redis:6379", RedisConfig{Host: "redis", Port: 6379}.Addr())
}
