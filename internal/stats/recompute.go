package stats

import "math"

const (
	// TopScoreLimit is how many Best scores feed the weighted totals.
	TopScoreLimit = 100

	weightDecay   = 0.95
	bonusMax      = 416.6667
	bonusDecay    = 0.995
	bonusCountCap = 1000
)

// Entry is one Best score's contribution to the weighted totals.
type Entry struct {
	PP  float64
	Acc float64
}

// Recompute derives total pp and weighted accuracy from a player's Best scores
// ordered by pp descending. rankedCount is the number of Best scores on
// ranked maps and drives the bonus. Entries past TopScoreLimit are ignored.
// 가중치는 0.95^i, 보너스는 랭크 맵 베스트 수 기준.
func Recompute(entries []Entry, rankedCount int) (pp int, acc float64) {
	if len(entries) > TopScoreLimit {
		entries = entries[:TopScoreLimit]
	}

	var totalPP, totalAcc, weights float64
	w := 1.0
	for _, e := range entries {
		totalPP += e.PP * w
		totalAcc += e.Acc * w
		weights += w
		w *= weightDecay
	}
	if weights > 0 {
		acc = totalAcc / weights
	}

	n := rankedCount
	if n > bonusCountCap {
		n = bonusCountCap
	}
	if n < 0 {
		n = 0
	}
	bonus := bonusMax * (1 - math.Pow(bonusDecay, float64(n)))
	return int(totalPP + bonus), acc
}
