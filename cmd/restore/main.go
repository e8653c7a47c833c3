package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/timescale/TimescaleDB-HybridSearch/internal/config"
	"github.com/timescale/TimescaleDB-HybridSearch/internal/logger"
	"github.com/timescale/TimescaleDB-HybridSearch/pg"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional; DATABASE_URL env suffices)")
	csvPath := flag.String("csv", "data/documents.csv", "path to the dataset CSV dump")
	drop := flag.Bool("drop", false, "drop an existing documents table before restoring")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(*csvPath); err != nil {
		log.Fatal("dataset CSV not found", zap.String("path", *csvPath), zap.Error(err))
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Fatal("parse database url", zap.Error(err))
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal("ping", zap.Error(err))
	}

	if cfg.IsTigerCloud() {
		log.Info("target is Tiger Cloud; timescaledb, vector and vectorscale are preinstalled")
	} else {
		log.Info("target is self-hosted; timescaledb and vectorscale may be unavailable, " +
			"in which case hypertable conversion is skipped and an HNSW index is used")
	}

	restorer, err := pg.NewRestorer(pool, log)
	if err != nil {
		log.Fatal("restorer", zap.Error(err))
	}

	stats, err := restorer.Run(ctx, *csvPath, *drop)
	if err != nil {
		log.Fatal("restore failed", zap.Error(err))
	}

	log.Info("restore complete",
		zap.Int64("documents", stats.Documents),
		zap.Int64("with_embeddings", stats.WithEmbeddings),
		zap.Int64("with_published_date", stats.WithPublished),
		zap.Int64("trap_sets", stats.TrapSets))
}
