package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Line sources.
const (
	SourceTelnet = "telnet"
	SourceFile   = "file"
)

// Spot sinks.
const (
	SinkStdout = "stdout"
	SinkKafka  = "kafka"
	SinkSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Source string

	// Telnet source.
	ClusterAddr        string
	ClusterCallsign    string
	ClusterDialTimeout time.Duration

	// File source.
	SourceFile string

	Sinks          []string
	KafkaBrokers   []string
	KafkaSinkTopic string
	SQLitePath     string
	DedupCacheSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	dialTimeoutStr := sharedcfg.EnvOrDefault("CLUSTER_DIAL_TIMEOUT", "10s")
	dialTimeout, err2 := time.ParseDuration(dialTimeoutStr)
	if err2 != nil || dialTimeout <= 0 {
		return nil, errors.New("invalid CLUSTER_DIAL_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	sinks, err := parseSinks(sharedcfg.EnvOrDefault("SINKS", SinkStdout))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Source:             strings.ToLower(sharedcfg.EnvOrDefault("SOURCE", SourceTelnet)),
		ClusterAddr:        sharedcfg.EnvOrDefault("CLUSTER_ADDR", "dxc.nc7j.com:7373"),
		ClusterCallsign:    strings.ToUpper(strings.TrimSpace(os.Getenv("CLUSTER_CALLSIGN"))),
		ClusterDialTimeout: dialTimeout,
		SourceFile:         os.Getenv("SOURCE_FILE"),
		Sinks:              sinks,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "dx-spots"),
		SQLitePath:         sharedcfg.EnvOrDefault("SQLITE_PATH", "spots.db"),
		DedupCacheSize:     parseDedupCacheSize(),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	switch cfg.Source {
	case SourceTelnet:
		if cfg.ClusterAddr == "" {
			return nil, errors.New("CLUSTER_ADDR is required for the telnet source")
		}
		if cfg.ClusterCallsign == "" {
			return nil, errors.New("CLUSTER_CALLSIGN is required for the telnet source")
		}
	case SourceFile:
		if cfg.SourceFile == "" {
			return nil, errors.New("SOURCE_FILE is required for the file source")
		}
	default:
		return nil, fmt.Errorf("invalid SOURCE %q: want telnet or file", cfg.Source)
	}

	if cfg.HasSink(SinkKafka) {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.HasSink(SinkSQLite) && cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH is required")
	}

	return cfg, nil
}

// HasSink reports whether name is among the configured sinks.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.Sinks, name)
}

func parseSinks(s string) ([]string, error) {
	var sinks []string
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		switch name {
		case SinkStdout, SinkKafka, SinkSQLite:
		default:
			return nil, fmt.Errorf("invalid SINKS entry %q: want stdout, kafka or sqlite", name)
		}
		if !slices.Contains(sinks, name) {
			sinks = append(sinks, name)
		}
	}
	if len(sinks) == 0 {
		return nil, errors.New("SINKS is required")
	}
	return sinks, nil
}

// parseDedupCacheSize reads DEDUP_CACHE_SIZE; 0 disables duplicate suppression.
func parseDedupCacheSize() int {
	if s := os.Getenv("DEDUP_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 1000
}
