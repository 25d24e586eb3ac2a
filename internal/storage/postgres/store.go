package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gnobounty/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store persists realm snapshots in Postgres.
type Store struct {
	pool  *pgxpool.Pool
	realm string
}

func NewStore(ctx context.Context, dsn, realm string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if realm == "" {
		return nil, fmt.Errorf("realm is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, realm: realm}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the snapshot tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutBounties inserts or updates bounties.
func (s *Store) PutBounties(ctx context.Context, bounties []model.Bounty) error {
	if len(bounties) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range bounties {
		batch.Queue(`
			INSERT INTO bounties (
				realm, id, title, issue_url, description, amount, creator, created_at,
				is_claimed, claimer, claimed_at, first_seen, updated_at
			) VALUES ($1, $2, $3, $4, $5, ($6::text)::numeric, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (realm, id)
			DO UPDATE SET
				title = EXCLUDED.title,
				issue_url = EXCLUDED.issue_url,
				description = EXCLUDED.description,
				amount = EXCLUDED.amount,
				creator = EXCLUDED.creator,
				created_at = EXCLUDED.created_at,
				is_claimed = EXCLUDED.is_claimed,
				claimer = EXCLUDED.claimer,
				claimed_at = EXCLUDED.claimed_at,
				updated_at = now()
		`,
			s.realm,
			int64(model.NumericID(b.ID)),
			b.Title,
			b.IssueURL,
			b.Description,
			numericText(b.Amount),
			b.Creator,
			b.CreatedAt,
			b.IsClaimed,
			b.Claimer,
			b.ClaimedAt,
		)
	}
	return s.sendBatch(ctx, batch, len(bounties))
}

// PutApplications inserts or updates applications.
func (s *Store) PutApplications(ctx context.Context, apps []model.Application) error {
	if len(apps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range apps {
		validators := a.Validators
		if validators == nil {
			validators = []string{}
		}
		batch.Queue(`
			INSERT INTO applications (
				realm, id, bounty_id, applicant, pr_link, applied_at, status, validators, first_seen, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (realm, id)
			DO UPDATE SET
				bounty_id = EXCLUDED.bounty_id,
				applicant = EXCLUDED.applicant,
				pr_link = EXCLUDED.pr_link,
				applied_at = EXCLUDED.applied_at,
				status = EXCLUDED.status,
				validators = EXCLUDED.validators,
				updated_at = now()
		`,
			s.realm,
			int64(model.NumericID(a.ID)),
			int64(model.NumericID(a.BountyID)),
			a.Applicant,
			a.PRLink,
			a.AppliedAt,
			a.Status.String(),
			validators,
		)
	}
	return s.sendBatch(ctx, batch, len(apps))
}

// PutLeaderboard stores one leaderboard snapshot taken at takenAt.
func (s *Store) PutLeaderboard(ctx context.Context, takenAt time.Time, entries []model.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO leaderboard_snapshots (
				realm, taken_at, address, bounties_created, bounties_applied, validations_performed, score
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (realm, taken_at, address) DO NOTHING
		`,
			s.realm,
			takenAt.UTC(),
			e.Address,
			e.BountiesCreated,
			e.BountiesApplied,
			e.ValidationsPerformed,
			e.Score,
		)
	}
	return s.sendBatch(ctx, batch, len(entries))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// numericText returns amount when it is a plain decimal, else "0".
func numericText(amount string) string {
	if amount == "" {
		return "0"
	}
	for _, r := range amount {
		if r < '0' || r > '9' {
			return "0"
		}
	}
	return amount
}
