package bounty

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gnobounty/internal/dump"
	"gnobounty/internal/model"
)

// DefaultMaxBounties caps the bounty walk when Config.MaxBounties is zero.
const DefaultMaxBounties = 10000

// walkChunk is how many bounty IDs one fan-out round covers.
const walkChunk = 256

// Ledger evaluates read-only expressions against a realm.
type Ledger interface {
	QEval(ctx context.Context, realm, expr string) (string, error)
}

// Config holds assembler settings.
type Config struct {
	Realm string
	// Concurrency caps parallel per-bounty calls. Values below 1 mean 1.
	Concurrency int
	// MaxBounties caps how many bounty IDs are walked. Zero means
	// DefaultMaxBounties.
	MaxBounties uint64
	// IncludeValidators fetches validators for pending applications.
	IncludeValidators bool
}

// Service assembles bounty collections from realm dumps. Every method is
// total: failures are logged and degrade to nil or empty results.
type Service struct {
	cfg    Config
	ledger Ledger
	parser *dump.Parser
	logger *zap.Logger
}

// NewService builds a Service with its dependencies.
func NewService(cfg Config, ledger Ledger, parser *dump.Parser, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = dump.NewParser(logger, nil)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxBounties == 0 {
		cfg.MaxBounties = DefaultMaxBounties
	}
	return &Service{
		cfg:    cfg,
		ledger: ledger,
		parser: parser,
		logger: logger.Named("bounty"),
	}
}

// Realm returns the realm path the service reads from.
func (s *Service) Realm() string {
	return s.cfg.Realm
}

// Bounty returns the bounty with the given ID, or nil.
func (s *Service) Bounty(ctx context.Context, id uint64) *model.Bounty {
	raw, err := s.ledger.QEval(ctx, s.cfg.Realm, fmt.Sprintf("GetBounty(%d)", id))
	if err != nil {
		s.logger.Warn("get bounty failed", zap.Uint64("bounty_id", id), zap.Error(err))
		return nil
	}
	b := s.parser.Bounty(raw)
	if b == nil {
		s.logger.Debug("bounty not found", zap.Uint64("bounty_id", id))
		return nil
	}
	return b
}

// Bounties returns every bounty in ID order.
func (s *Service) Bounties(ctx context.Context) (found []model.Bounty) {
	defer recoverTo(s, &found, "bounties")

	count, ok := s.count(ctx)
	if !ok {
		return []model.Bounty{}
	}
	found = fanOut(ctx, s, count, func(ctx context.Context, id uint64) (model.Bounty, bool) {
		b := s.Bounty(ctx, id)
		if b == nil {
			return model.Bounty{}, false
		}
		return *b, true
	})
	return found
}

// Applications returns the applications submitted against one bounty. With
// IncludeValidators set, pending applications carry their validators.
func (s *Service) Applications(ctx context.Context, bountyID uint64) []model.Application {
	apps := s.applications(ctx, bountyID)
	if !s.cfg.IncludeValidators {
		return apps
	}
	for i := range apps {
		if apps[i].Status == model.StatusPending {
			apps[i].Validators = s.validators(ctx, apps[i].ID)
		}
	}
	return apps
}

func (s *Service) applications(ctx context.Context, bountyID uint64) []model.Application {
	raw, err := s.ledger.QEval(ctx, s.cfg.Realm, fmt.Sprintf("GetApplicationsForBounty(%d)", bountyID))
	if err != nil {
		s.logger.Warn("get applications failed", zap.Uint64("bounty_id", bountyID), zap.Error(err))
		return []model.Application{}
	}
	apps := s.parser.Applications(raw)
	for i := range apps {
		if apps[i].BountyID == "" {
			apps[i].BountyID = strconv.FormatUint(bountyID, 10)
		}
	}
	return apps
}

// Leaderboard returns the leaderboard ordered by score, highest first.
func (s *Service) Leaderboard(ctx context.Context) []model.LeaderboardEntry {
	raw, err := s.ledger.QEval(ctx, s.cfg.Realm, "GetLeaderboard()")
	if err != nil {
		s.logger.Warn("get leaderboard failed", zap.Error(err))
		return []model.LeaderboardEntry{}
	}
	return s.parser.Leaderboard(raw)
}

// UserBounties returns the bounties created by address, newest first.
func (s *Service) UserBounties(ctx context.Context, address string) []model.Bounty {
	out := make([]model.Bounty, 0)
	for _, b := range s.Bounties(ctx) {
		if b.Creator == address {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return model.IDDesc(out[i].ID, out[j].ID) })
	return out
}

// UserApplications returns the applications submitted by address joined with
// their bounty's title and amount, newest first. Bounty details are fetched at
// most once per bounty within one call. Validators are never looked up here.
func (s *Service) UserApplications(ctx context.Context, address string) (out []model.UserApplication) {
	defer recoverTo(s, &out, "user applications")

	count, ok := s.count(ctx)
	if !ok {
		return []model.UserApplication{}
	}

	perBounty := fanOut(ctx, s, count, func(ctx context.Context, id uint64) ([]model.Application, bool) {
		apps := s.applications(ctx, id)
		mine := make([]model.Application, 0, len(apps))
		for _, app := range apps {
			if app.Applicant == address {
				mine = append(mine, app)
			}
		}
		return mine, len(mine) > 0
	})

	details := make(map[string]*model.Bounty)
	out = make([]model.UserApplication, 0)
	for _, apps := range perBounty {
		for _, app := range apps {
			parent, seen := details[app.BountyID]
			if !seen {
				parent = s.bountyByText(ctx, app.BountyID)
				details[app.BountyID] = parent
			}
			ua := model.UserApplication{
				Application:  app,
				BountyTitle:  "Bounty #" + app.BountyID,
				BountyAmount: "0",
			}
			if parent != nil {
				if parent.Title != "" {
					ua.BountyTitle = parent.Title
				}
				if parent.Amount != "" {
					ua.BountyAmount = parent.Amount
				}
			}
			out = append(out, ua)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return model.IDDesc(out[i].ID, out[j].ID) })
	return out
}

func (s *Service) bountyByText(ctx context.Context, id string) *model.Bounty {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil
	}
	return s.Bounty(ctx, n)
}

func (s *Service) count(ctx context.Context) (uint64, bool) {
	raw, err := s.ledger.QEval(ctx, s.cfg.Realm, "GetBountyCount()")
	if err != nil {
		s.logger.Warn("get bounty count failed", zap.Error(err))
		return 0, false
	}
	count, ok := s.parser.Count(raw)
	if !ok {
		s.logger.Warn("bounty count not decodable", zap.String("dump", raw))
		return 0, false
	}
	if count > s.cfg.MaxBounties {
		s.logger.Warn("bounty count capped", zap.Uint64("count", count), zap.Uint64("max", s.cfg.MaxBounties))
		count = s.cfg.MaxBounties
	}
	return count, true
}

func (s *Service) validators(ctx context.Context, applicationID string) []string {
	raw, err := s.ledger.QEval(ctx, s.cfg.Realm, "GetValidatorsForApplication("+applicationID+")")
	if err != nil {
		s.logger.Warn("get validators failed", zap.String("application_id", applicationID), zap.Error(err))
		return nil
	}
	addrs := s.parser.Addresses(raw)
	if len(addrs) == 0 {
		return nil
	}
	return addrs
}

// recoverTo turns a panic escaping an assembler method into an empty result.
func recoverTo[T any](s *Service, out *[]T, op string) {
	if r := recover(); r != nil {
		s.logger.Error("assembler panic", zap.String("operation", op), zap.Any("panic", r))
		*out = make([]T, 0)
	}
}

type slot[T any] struct {
	value T
	ok    bool
}

// fanOut calls fetch for IDs 1..count with at most cfg.Concurrency calls in
// flight, walking the IDs in chunks of walkChunk. Results keep ID order; IDs
// whose fetch reports !ok or panics are skipped.
func fanOut[T any](ctx context.Context, s *Service, count uint64, fetch func(context.Context, uint64) (T, bool)) []T {
	out := make([]T, 0)
	for done := uint64(0); done < count; {
		if ctx.Err() != nil {
			break
		}
		n := min(count-done, walkChunk)
		results := make([]slot[T], n)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Concurrency)
		for i := uint64(0); i < n; i++ {
			i := i
			if gctx.Err() != nil {
				break
			}
			id := done + i + 1
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Error("fetch panic", zap.Uint64("bounty_id", id), zap.Any("panic", r))
					}
				}()
				v, ok := fetch(gctx, id)
				results[i] = slot[T]{value: v, ok: ok}
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			if r.ok {
				out = append(out, r.value)
			}
		}
		done += n
	}
	return out
}
