// Command dxspot reads a DX cluster feed, classifies every line and publishes
// the parsed spots to the configured sinks.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/file"
	httpadapter "github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/kafka"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/stdout"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/telnet"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/config"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/dedup"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/observability"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/pipeline"
)

// source is a line extractor that owns a connection or file.
type source interface {
	pipeline.BatchExtractor
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := openSource(cfg, logger)
	if err != nil {
		logger.Error("failed to open source", "error", err)
		os.Exit(1)
	}

	loader, closers, err := openSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sinks", "error", err)
		_ = src.Close()
		os.Exit(1)
	}

	transformer := pipeline.NewTransformer(domain.DefaultRegistry, logger)
	p := pipeline.New(src, transformer, loader, logger, metrics, cfg.BatchSize,
		pipeline.WithDedup(dedup.New(cfg.DedupCacheSize)))
	logger.Info("duplicate suppression", "cache_size", cfg.DedupCacheSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, domain.DefaultRegistry, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the pipeline. A file source ends the run on its own.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		defer stop()
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	// The source and sinks stay open until the in-flight batch is loaded.
	if !waitForPipeline(shutdownCtx, pipelineDone) {
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := src.Close(); err != nil {
		logger.Error("source close error", "error", err)
	}
	for name, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("sink close error", "sink", name, "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// waitForPipeline blocks until done is closed or ctx ends. It reports whether
// the pipeline stopped in time.
func waitForPipeline(ctx context.Context, done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func openSource(cfg *config.Config, logger *slog.Logger) (source, error) {
	switch cfg.Source {
	case config.SourceFile:
		return file.Open(cfg.SourceFile, logger)
	default:
		return telnet.NewClient(telnet.Config{
			Addr:          cfg.ClusterAddr,
			Callsign:      cfg.ClusterCallsign,
			DialTimeout:   cfg.ClusterDialTimeout,
			FlushInterval: cfg.BatchFlushInterval,
		}, logger), nil
	}
}

// openSinks builds the configured sinks in order and returns those that need
// closing at shutdown.
func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.MultiLoader, map[string]io.Closer, error) {
	var sinks []pipeline.NamedLoader
	closers := map[string]io.Closer{}

	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkStdout:
			sinks = append(sinks, pipeline.NamedLoader{Name: name, Loader: stdout.NewWriter(os.Stdout)})
		case config.SinkKafka:
			w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
			sinks = append(sinks, pipeline.NamedLoader{Name: name, Loader: w})
			closers[name] = w
		case config.SinkSQLite:
			s, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
			if err != nil {
				for _, c := range closers {
					_ = c.Close()
				}
				return nil, nil, err
			}
			sinks = append(sinks, pipeline.NamedLoader{Name: name, Loader: s})
			closers[name] = s
		}
	}
	logger.Info("sinks configured", "sinks", cfg.Sinks)
	return pipeline.NewMultiLoader(sinks...), closers, nil
}
