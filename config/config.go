package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	BagTrace     BagTraceConfig     `yaml:"bagtrace"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Matching     MatchingConfig     `yaml:"matching"`
	Verification VerificationConfig `yaml:"verification"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	LuggageReportedTopicName string `yaml:"luggage_reported_topic_name"`
}

func (k KafkaConfig) Brokers() []string {
	return []string{net.JoinHostPort(k.Host, strconv.Itoa(k.Port))}
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type BagTraceConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	WorkerHTTPAddr     string `yaml:"worker_http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	RouteCacheTTLSeconds int `yaml:"route_cache_ttl_seconds"` // 0 = cache disabled

	WorkerPollIntervalSeconds int `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int `yaml:"worker_batch_size"`
	WorkerConcurrency         int `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int `yaml:"worker_lease_seconds"`

	// Retry schedule for failed embeddings, defaults 5/15/30/60 minutes.
	EmbedBackoff1Seconds int `yaml:"embed_backoff_1_seconds"`
	EmbedBackoff2Seconds int `yaml:"embed_backoff_2_seconds"`
	EmbedBackoff3Seconds int `yaml:"embed_backoff_3_seconds"`
	EmbedBackoff4Seconds int `yaml:"embed_backoff_4_seconds"`
}

type ProvidersConfig struct {
	Aviationstack AviationstackConfig `yaml:"aviationstack"`
	Amadeus       AmadeusConfig       `yaml:"amadeus"`
	DisableStatic bool                `yaml:"disable_static"`
}

type AviationstackConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type AmadeusConfig struct {
	BaseURL            string `yaml:"base_url"`
	ClientID           string `yaml:"client_id"`
	ClientSecret       string `yaml:"client_secret"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type EmbedderConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MatchingConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

// Zero values fall back to the built-in weights and thresholds.
type VerificationConfig struct {
	FlightVerifiedPoints   int `yaml:"flight_verified_points"`
	FlightPartialPoints    int `yaml:"flight_partial_points"`
	FlightSecondaryPoints  int `yaml:"flight_secondary_points"`
	TravelDocumentPoints   int `yaml:"travel_document_points"`
	BaggageTagPoints       int `yaml:"baggage_tag_points"`
	BookingReferencePoints int `yaml:"booking_reference_points"`
	TicketNumberPoints     int `yaml:"ticket_number_points"`

	VerifiedThreshold int `yaml:"verified_threshold"`
	LikelyThreshold   int `yaml:"likely_threshold"`
}

// Секреты можно держать вне YAML: переменные окружения (или .env) перекрывают файл.
const (
	EnvAviationstackAPIKey = "AVIATIONSTACK_API_KEY"
	EnvAmadeusClientID     = "AMADEUS_CLIENT_ID"
	EnvAmadeusClientSecret = "AMADEUS_CLIENT_SECRET"
	EnvDatabasePassword    = "DATABASE_PASSWORD"
	EnvRedisPassword       = "REDIS_PASSWORD"
)

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	// .env не обязателен; уже выставленные переменные он не трогает.
	_ = godotenv.Load()
	config.applyEnv()

	return &config, nil
}

func (c *Config) applyEnv() {
	overlay := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	overlay(&c.Providers.Aviationstack.APIKey, EnvAviationstackAPIKey)
	overlay(&c.Providers.Amadeus.ClientID, EnvAmadeusClientID)
	overlay(&c.Providers.Amadeus.ClientSecret, EnvAmadeusClientSecret)
	overlay(&c.Database.Password, EnvDatabasePassword)
	overlay(&c.Redis.Password, EnvRedisPassword)
}
