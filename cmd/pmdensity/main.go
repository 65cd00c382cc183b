package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/pm-density-service/internal/account"
	"github.com/couchcryptid/pm-density-service/internal/adapter/credentials"
	"github.com/couchcryptid/pm-density-service/internal/adapter/csvsource"
	httpadapter "github.com/couchcryptid/pm-density-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pm-density-service/internal/adapter/kafka"
	"github.com/couchcryptid/pm-density-service/internal/config"
	"github.com/couchcryptid/pm-density-service/internal/dashboard"
	"github.com/couchcryptid/pm-density-service/internal/domain"
	"github.com/couchcryptid/pm-density-service/internal/observability"
	"github.com/couchcryptid/pm-density-service/internal/pipeline"
	"github.com/couchcryptid/pm-density-service/internal/store"
)

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

	columns := domain.ColumnMap{
		TimestampColumn:  cfg.TimestampColumn,
		TimestampAliases: cfg.TimestampAliases,
		DensityColumn:    cfg.DensityColumn,
	}

	files, err := csvsource.LoadDir(cfg.DataDir, cfg.DataGlob)
	if err != nil {
		logger.Error("failed to read source files", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	sources := make([]pipeline.Source, 0, len(files))
	for _, f := range files {
		sources = append(sources, pipeline.Source{
			Name:     f.Name,
			Data:     f.Data,
			Encoding: cfg.SourceEncoding,
			Columns:  columns,
		})
	}

	parser := csvsource.Parser{}
	readings := store.New()

	// The store must be fully loaded before any query is served.
	loader := pipeline.NewBulkLoader(parser, readings, logger, metrics)
	if _, err := loader.Load(ctx, sources); err != nil {
		logger.Error("bulk load failed", "error", err)
		os.Exit(1)
	}

	// Optional ingest sink (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka ingest sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka ingest sink disabled")
	}

	ingester := pipeline.NewIngester(parser, readings, publisher, logger, metrics)
	querier := pipeline.NewQuerier(readings, cfg.SummaryCacheSize, metrics)
	dash := dashboard.NewService(querier, ingester, columns, logger, metrics)

	accounts, err := account.NewService(credentials.NewFileStore(cfg.CredentialsFile), logger)
	if err != nil {
		logger.Error("failed to load credentials", "path", cfg.CredentialsFile, "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, loader, dash, accounts, cfg.MaxUploadBytes, logger)

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
