package score

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/oracle"
)

// Oracle computes performance ratings; *oracle.Client satisfies it.
type Oracle interface {
	Calculate(ctx context.Context, r oracle.Request) (oracle.Result, error)
}

// Rater fills PP, Stars and HypotheticalPP on a score.
type Rater struct {
	oracle Oracle
	logger *zap.Logger
}

func NewRater(o Oracle, logger *zap.Logger) *Rater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rater{oracle: o, logger: logger}
}

// Rate never fails: an unreachable oracle leaves the rating at zero.
func (r *Rater) Rate(ctx context.Context, s *domain.Score, bm *domain.Beatmap) {
	s.PP, s.Stars, s.HypotheticalPP = 0, 0, 0
	if r == nil || r.oracle == nil {
		return
	}
	res, err := r.oracle.Calculate(ctx, oracle.Request{
		BeatmapID:   bm.ID,
		Mode:        s.Mode,
		Mods:        s.Mods,
		MaxCombo:    s.MaxCombo,
		Accuracy:    s.Acc,
		MissCount:   s.NMiss,
		LegacyScore: s.Score,
	})
	if err != nil {
		r.logger.Warn("pp_calculation_failed",
			zap.Int64("beatmap_id", bm.ID),
			zap.String("mode", s.Mode.String()),
			zap.Error(err),
		)
		return
	}
	s.PP = finite(res.PP)
	s.Stars = finite(res.Stars)
	s.HypotheticalPP = finite(res.HypotheticalPP)
}
