package main

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ConfigPathEnv names the variable pointing to an optional YAML file.
// Environment variables override the file.
const ConfigPathEnv = "UTVIEW_CONFIG"

type (
	ServiceConfig struct {
		Environment string `yaml:"environment" env:"SENTRY_ENVIRONMENT" env-default:"development"`
		SentryDSN   string `yaml:"sentry_dsn" env:"SENTRY_DSN"`
		Port        string `yaml:"port" env:"PORT" env-default:"8080"`

		StorageURL string `yaml:"storage_url" env:"UTVIEW_STORAGE_URL" env-default:"mem://"`

		KafkaBrokers     []string `yaml:"kafka_brokers" env:"UTVIEW_KAFKA_BROKERS" env-separator:","`
		TracesKafkaTopic string   `yaml:"traces_kafka_topic" env:"UTVIEW_TRACES_KAFKA_TOPIC" env-default:"ingested-traces"`

		WorkingSetSeconds float64       `yaml:"working_set_seconds" env:"UTVIEW_WORKING_SET_SECONDS" env-default:"0"`
		ThrottleInterval  time.Duration `yaml:"throttle_interval" env:"UTVIEW_THROTTLE_INTERVAL" env-default:"100ms"`
		SessionTTL        time.Duration `yaml:"session_ttl" env:"UTVIEW_SESSION_TTL" env-default:"15m"`
		IndexThreshold    int           `yaml:"index_threshold" env:"UTVIEW_INDEX_THRESHOLD" env-default:"4096"`
		ReaderWorkers     int           `yaml:"reader_workers" env:"UTVIEW_READER_WORKERS" env-default:"4"`
		MaxUniqueTasks    uint          `yaml:"max_unique_tasks" env:"UTVIEW_MAX_UNIQUE_TASKS" env-default:"100"`
		FrameDuration     float64       `yaml:"frame_duration" env:"UTVIEW_FRAME_DURATION" env-default:"0.011111111111111112"`
	}
)

func readServiceConfig(path string) (ServiceConfig, error) {
	var cfg ServiceConfig
	if path != "" {
		return cfg, cleanenv.ReadConfig(path, &cfg)
	}
	return cfg, cleanenv.ReadEnv(&cfg)
}
