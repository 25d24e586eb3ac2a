package storage

import (
	"context"
	"time"

	"gnobounty/internal/model"
)

// Sink receives one snapshot of the realm's collections.
type Sink interface {
	PutBounties(ctx context.Context, bounties []model.Bounty) error
	PutApplications(ctx context.Context, apps []model.Application) error
	PutLeaderboard(ctx context.Context, takenAt time.Time, entries []model.LeaderboardEntry) error
}
