package stats

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Updater applies accepted plays to stored stats and keeps the rankings current.
type Updater struct {
	repo   Repository
	ranks  *RankTracker
	logger *zap.Logger
}

func NewUpdater(repo Repository, ranks *RankTracker, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{repo: repo, ranks: ranks, logger: logger}
}

// Record folds s into the player's stats for its mode and saves them. It
// returns the stats before and after, each with its global rank.
func (u *Updater) Record(ctx context.Context, user *domain.User, s, prevBest *domain.Score, bm *domain.Beatmap) (before, after *domain.Stats, err error) {
	st, err := u.repo.Fetch(ctx, user.ID, s.Mode)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		st = &domain.Stats{UserID: user.ID, Mode: s.Mode}
	case err != nil:
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	st.Rank = u.rank(ctx, user.ID, s.Mode)
	before = st.Clone()

	if Apply(st, s, prevBest, bm) {
		if err := u.recompute(ctx, st); err != nil {
			return nil, nil, err
		}
		rank, err := u.upsertRank(ctx, st, user)
		if err != nil {
			u.logger.Warn("rank_update_failed", zap.Int64("user_id", user.ID), zap.Error(err))
		} else {
			st.Rank = rank
		}
	}

	if err := u.repo.Save(ctx, st); err != nil {
		return nil, nil, err
	}
	return before, st, nil
}

func (u *Updater) recompute(ctx context.Context, st *domain.Stats) error {
	entries, err := u.repo.TopRatings(ctx, st.UserID, st.Mode)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	count, err := u.repo.RankedCount(ctx, st.UserID, st.Mode)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	st.PP, st.Acc = Recompute(entries, count)
	return nil
}

func (u *Updater) rank(ctx context.Context, userID int64, mode domain.Mode) int {
	if u.ranks == nil {
		return 0
	}
	r, err := u.ranks.Rank(ctx, userID, mode)
	if err != nil {
		u.logger.Warn("rank_lookup_failed", zap.Int64("user_id", userID), zap.Error(err))
		return 0
	}
	return r
}

func (u *Updater) upsertRank(ctx context.Context, st *domain.Stats, user *domain.User) (int, error) {
	if u.ranks == nil {
		return 0, nil
	}
	return u.ranks.Upsert(ctx, st, user.Country, user.Restricted())
}
