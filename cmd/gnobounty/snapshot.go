package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gnobounty/internal/config"
	"gnobounty/internal/snapshot"
	"gnobounty/internal/storage"
	"gnobounty/internal/storage/postgres"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, svc, err := newService(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	var (
		sink         storage.Sink
		manifestPath string
	)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.Realm)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
	} else {
		sink = storage.NewJsonlStorage(cfg.Out)
		manifestPath = filepath.Join(cfg.Out, "manifest.json")
	}

	runner := snapshot.NewRunner(snapshot.RunConfig{
		Interval:     cfg.Interval,
		ManifestPath: manifestPath,
	}, svc, sink, logger)

	logger.Info("gnobounty snapshot start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("realm", cfg.Realm),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Duration("interval", cfg.Interval),
	)

	return runner.Run(ctx)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
