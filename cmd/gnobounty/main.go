package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gnobounty/internal/api"
	"gnobounty/internal/bounty"
	"gnobounty/internal/chain"
	"gnobounty/internal/config"
	"gnobounty/internal/dump"
	"gnobounty/internal/metrics"
)

func main() {
	root := &cobra.Command{
		Use:          "gnobounty",
		Short:        "Read service for the gnobounty realm",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve bounties, applications and the leaderboard over HTTP",
		RunE:  runServe,
	}

	addLedgerFlags(serveCmd.Flags())
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	root.AddCommand(serveCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export bounties, applications and the leaderboard",
		RunE:  runSnapshot,
	}

	addLedgerFlags(snapshotCmd.Flags())
	snapshotCmd.Flags().String("out", "./data", "output directory for JSONL files")
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN (replaces JSONL output when set)")
	snapshotCmd.Flags().Duration("interval", 0, "repeat interval, 0 runs once")

	root.AddCommand(snapshotCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLedgerFlags(flags *pflag.FlagSet) {
	flags.String("rpc", config.DefaultRPC, "gno.land RPC URL")
	flags.String("realm", config.DefaultRealm, "bounty realm path")
	flags.Int("rate-limit", 20, "maximum qeval calls per second, 0 disables")
	flags.Int("max-retries", 3, "maximum retry attempts per call")
	flags.Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	flags.Duration("call-timeout", 10*time.Second, "timeout per qeval call")
	flags.Int("concurrency", 4, "parallel per-bounty calls")
	flags.Uint64("max-bounties", bounty.DefaultMaxBounties, "maximum bounty IDs walked per request")
	flags.Bool("include-validators", true, "fetch validators for pending applications")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
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

	server := api.NewServer(api.Config{
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, svc, logger)

	logger.Info("gnobounty serve start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("realm", cfg.Realm),
		zap.String("addr", cfg.Addr),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("rate_limit", cfg.RateLimit),
		zap.Bool("include_validators", cfg.IncludeValidators),
	)

	return server.Run(ctx)
}

func newService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*chain.Client, *bounty.Service, error) {
	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		RateLimit:    cfg.RateLimit,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		CallTimeout:  cfg.CallTimeout,
		Metrics:      metrics.NewLedger(),
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	parser := dump.NewParser(logger.Named("dump"), metrics.NewParser())
	svc := bounty.NewService(bounty.Config{
		Realm:             cfg.Realm,
		Concurrency:       cfg.Concurrency,
		MaxBounties:       cfg.MaxBounties,
		IncludeValidators: cfg.IncludeValidators,
	}, chainClient, parser, logger)

	return chainClient, svc, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
