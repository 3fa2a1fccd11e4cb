package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/park285/rhythm-score-server/internal/domain"
)

const leaderboardKeyPrefix = "score:leaderboard:"

// GlobalKey and CountryKey name the sorted sets of one mode.
func GlobalKey(mode domain.Mode) string {
	return leaderboardKeyPrefix + strconv.Itoa(int(mode))
}

func CountryKey(mode domain.Mode, country string) string {
	return GlobalKey(mode) + ":" + country
}

// RankTracker keeps per-mode global and per-country rankings in Redis sorted sets.
type RankTracker struct {
	rdb redis.UniversalClient
}

func NewRankTracker(rdb redis.UniversalClient) *RankTracker {
	return &RankTracker{rdb: rdb}
}

// RankValue is the sorted-set score of st: pp, or XP on modes without a
// supported performance rating.
func RankValue(st *domain.Stats) float64 {
	if st.Mode.RatingSupported() {
		return float64(st.PP)
	}
	return st.XP
}

// Upsert writes st into both sets and returns the global rank. Restricted
// players are not written but still get their current rank (usually 0).
func (t *RankTracker) Upsert(ctx context.Context, st *domain.Stats, country string, restricted bool) (int, error) {
	if !restricted {
		member := strconv.FormatInt(st.UserID, 10)
		z := redis.Z{Score: RankValue(st), Member: member}
		pipe := t.rdb.TxPipeline()
		pipe.ZAdd(ctx, GlobalKey(st.Mode), z)
		if country != "" {
			pipe.ZAdd(ctx, CountryKey(st.Mode, country), z)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, fmt.Errorf("zadd leaderboard: %w", err)
		}
	}
	return t.Rank(ctx, st.UserID, st.Mode)
}

// Rank is the 1-based global rank, 0 when the player is not ranked.
func (t *RankTracker) Rank(ctx context.Context, userID int64, mode domain.Mode) (int, error) {
	r, err := t.rdb.ZRevRank(ctx, GlobalKey(mode), strconv.FormatInt(userID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("zrevrank: %w", err)
	}
	return int(r) + 1, nil
}
