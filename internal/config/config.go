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

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Bulk source files.
	DataDir          string
	DataGlob         string
	SourceEncoding   string
	TimestampColumn  string
	TimestampAliases []string
	DensityColumn    string

	CredentialsFile  string
	SummaryCacheSize int
	MaxUploadBytes   int64

	// Optional ingest sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
// If ENV_FILE names an existing file, its values seed the environment first;
// variables already set take precedence.
func Load() (*Config, error) {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load ENV_FILE %q: %w", path, err)
		}
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("SUMMARY_CACHE_SIZE", 512)
	if err != nil {
		return nil, err
	}

	maxUpload, err := parsePositiveInt("MAX_UPLOAD_BYTES", 32<<20)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	kafkaEnabled := kafkaBrokers != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:          sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		DataGlob:         sharedcfg.EnvOrDefault("DATA_GLOB", "*.csv"),
		SourceEncoding:   sharedcfg.EnvOrDefault("SOURCE_ENCODING", "cp949"),
		TimestampColumn:  sharedcfg.EnvOrDefault("TIMESTAMP_COLUMN", "일시"),
		TimestampAliases: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("TIMESTAMP_ALIASES", "시간")),
		DensityColumn:    sharedcfg.EnvOrDefault("DENSITY_COLUMN", "1시간평균 미세먼지농도(㎍/㎥)"),

		CredentialsFile:  sharedcfg.EnvOrDefault("CREDENTIALS_FILE", "user_data.txt"),
		SummaryCacheSize: cacheSize,
		MaxUploadBytes:   int64(maxUpload),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(kafkaBrokers),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "pm-density-readings"),
	}

	if cfg.TimestampColumn == "" {
		return nil, errors.New("TIMESTAMP_COLUMN is required")
	}
	if cfg.DensityColumn == "" {
		return nil, errors.New("DENSITY_COLUMN is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
