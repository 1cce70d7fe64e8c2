package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	SessionIdle     time.Duration // sessions untouched this long are dropped

	// Upstream APIs.
	NominatimURL    string
	INaturalistURL  string
	UserAgent       string
	UpstreamTimeout time.Duration // 0 disables the client timeout
	SearchRadiusKm  int
	MapZoom         int

	// Optional Kafka snapshot sink.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s", false)
	if err != nil {
		return nil, err
	}

	sessionIdle, err := parseDuration("SESSION_IDLE_TIMEOUT", "1h", false)
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "0s", true)
	if err != nil {
		return nil, err
	}

	radius, err := parsePositiveInt("SEARCH_RADIUS_KM", 20, 500)
	if err != nil {
		return nil, err
	}

	zoom, err := parsePositiveInt("MAP_ZOOM", 12, 19)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		SessionIdle:     sessionIdle,

		NominatimURL:    strings.TrimRight(envOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"), "/"),
		INaturalistURL:  strings.TrimRight(envOrDefault("INATURALIST_URL", "https://api.inaturalist.org/v1"), "/"),
		UserAgent:       envOrDefault("USER_AGENT", "biodiversity-map/1.0"),
		UpstreamTimeout: upstreamTimeout,
		SearchRadiusKm:  radius,
		MapZoom:         zoom,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       brokers,
		KafkaSnapshotTopic: envOrDefault("KAFKA_SNAPSHOT_TOPIC", "biodiversity-city-snapshots"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseDuration reads a duration variable. Zero is accepted only when allowZero is set.
func parseDuration(key, fallback string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback, upper int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > upper {
		return 0, errors.New("invalid " + key + ": must be between 1 and " + strconv.Itoa(upper))
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
