package score

import (
	"context"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Placement is the 1-based leaderboard position s would take on bm, or 0 when
// the map has no leaderboard.
func Placement(ctx context.Context, repo Repository, bm *domain.Beatmap, s *domain.Score) (int, error) {
	if !bm.HasLeaderboard() {
		return 0, nil
	}
	better, err := repo.CountBetter(ctx, bm.MD5, s.Mode, s.PP)
	if err != nil {
		return 0, err
	}
	return better + 1, nil
}
