package stats

import "github.com/park285/rhythm-score-server/internal/domain"

// Playtime is the seconds a play adds to the player's total. Passed plays count
// the whole track; failed plays count the elapsed time at track speed, never
// more than the track length.
func Playtime(s *domain.Score, bm *domain.Beatmap) int {
	if s.Passed {
		return bm.TotalLength
	}
	elapsed := float64(s.TimeElapsed) / 1000
	switch {
	case s.Mods.Has(domain.ModDoubleTime):
		elapsed /= 1.5
	case s.Mods.Has(domain.ModHalfTime):
		elapsed /= 0.75
	}
	if elapsed < 0 {
		return 0
	}
	if elapsed > float64(bm.TotalLength) {
		return bm.TotalLength
	}
	return int(elapsed)
}
