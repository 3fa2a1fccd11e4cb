package score

import "github.com/park285/rhythm-score-server/internal/domain"

// Accuracy returns the hit accuracy in percent for the score's ruleset.
// A play without any judged objects is 0.
func Accuracy(s *domain.Score) float64 {
	n300 := float64(s.N300)
	n100 := float64(s.N100)
	n50 := float64(s.N50)
	geki := float64(s.NGeki)
	katu := float64(s.NKatu)
	miss := float64(s.NMiss)

	switch s.Mode.Vanilla() {
	case 0:
		total := n300 + n100 + n50 + miss
		if total == 0 {
			return 0
		}
		return 100 * (n300*300 + n100*100 + n50*50) / (total * 300)
	case 1:
		total := n300 + n100 + miss
		if total == 0 {
			return 0
		}
		return 100 * (n100*0.5 + n300) / total
	case 2:
		total := n300 + n100 + n50 + katu + miss
		if total == 0 {
			return 0
		}
		return 100 * (n300 + n100 + n50) / total
	default:
		total := n300 + n100 + n50 + geki + katu + miss
		if total == 0 {
			return 0
		}
		return 100 * (n50*50 + n100*100 + katu*200 + (n300+geki)*300) / (total * 300)
	}
}
