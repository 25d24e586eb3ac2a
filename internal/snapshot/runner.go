package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gnobounty/internal/model"
	"gnobounty/internal/storage"
)

// Source is the read side of a snapshot.
type Source interface {
	Bounties(ctx context.Context) []model.Bounty
	Applications(ctx context.Context, bountyID uint64) []model.Application
	Leaderboard(ctx context.Context) []model.LeaderboardEntry
}

// RunConfig holds runtime settings for the snapshot runner.
type RunConfig struct {
	// Interval repeats the snapshot until the context ends. Zero runs once.
	Interval     time.Duration
	ManifestPath string
}

// Runner reads the realm's collections and writes them to a sink.
type Runner struct {
	cfg      RunConfig
	source   Source
	sink     storage.Sink
	manifest *ManifestStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source Source, sink storage.Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		manifest: NewManifestStore(cfg.ManifestPath),
		logger:   logger.Named("snapshot"),
		now:      time.Now,
	}
}

// Run takes one snapshot, or one per interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("source is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if r.cfg.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}

	prev, ok, err := r.manifest.Load()
	if err != nil {
		return err
	}
	if ok {
		r.logger.Info("previous snapshot", zap.String("taken_at", prev.TakenAt), zap.Int("bounties", prev.Bounties))
	}

	for {
		if err := r.Once(ctx); err != nil {
			return err
		}
		if r.cfg.Interval == 0 {
			return nil
		}

		timer := time.NewTimer(r.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Once takes a single snapshot.
func (r *Runner) Once(ctx context.Context) error {
	takenAt := r.now().UTC()

	bounties := r.source.Bounties(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.sink.PutBounties(ctx, bounties); err != nil {
		return fmt.Errorf("store bounties: %w", err)
	}

	appCount := 0
	for _, b := range bounties {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		id := model.NumericID(b.ID)
		if id == 0 {
			continue
		}
		apps := r.source.Applications(ctx, id)
		if err := r.sink.PutApplications(ctx, apps); err != nil {
			return fmt.Errorf("store applications for bounty %d: %w", id, err)
		}
		appCount += len(apps)
	}

	entries := r.source.Leaderboard(ctx)
	if err := r.sink.PutLeaderboard(ctx, takenAt, entries); err != nil {
		return fmt.Errorf("store leaderboard: %w", err)
	}

	manifest := Manifest{
		TakenAt:      takenAt.Format(time.RFC3339Nano),
		Bounties:     len(bounties),
		Applications: appCount,
		Leaderboard:  len(entries),
	}
	if err := r.manifest.Save(manifest); err != nil {
		return err
	}

	r.logger.Info("snapshot complete",
		zap.Int("bounties", len(bounties)),
		zap.Int("applications", appCount),
		zap.Int("leaderboard", len(entries)),
		zap.Duration("elapsed", r.now().Sub(takenAt)),
	)
	return nil
}
