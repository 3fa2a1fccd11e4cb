package stats

import "github.com/park285/rhythm-score-server/internal/domain"

// Apply folds one accepted play into st and reports whether the weighted
// totals need a recompute. prevBest is the player's Best on the map before
// this play was stored.
func Apply(st *domain.Stats, s, prevBest *domain.Score, bm *domain.Beatmap) (recompute bool) {
	st.Playtime += Playtime(s, bm)
	st.Plays++
	st.TotalScore += s.Score
	st.TotalHits += s.TotalHits()

	if !s.Passed || !bm.HasLeaderboard() {
		return false
	}
	st.XP += s.XP
	if s.MaxCombo > st.MaxCombo {
		st.MaxCombo = s.MaxCombo
	}
	if !bm.AwardsRankedPP() || s.Status != domain.StatusBest {
		return false
	}

	delta := s.Score
	if prevBest != nil {
		delta -= prevBest.Score
		if prevBest.Grade != s.Grade {
			st.AdjustGrade(prevBest.Grade, -1)
			st.AdjustGrade(s.Grade, 1)
		}
	} else {
		st.AdjustGrade(s.Grade, 1)
	}
	st.RankedScore += delta
	return true
}
