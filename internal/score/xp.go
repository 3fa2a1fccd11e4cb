package score

import (
	"math"

	"github.com/park285/rhythm-score-server/internal/domain"
)

const (
	xpScoreScale     = 1_000_000
	xpScoreWeight    = 200
	xpRatingWeight   = 300
	xpComboWeight    = 150
	xpLengthCap      = 600 // seconds
	xpLengthBonus    = 0.25
	xpAccPivot       = 85
	xpAccSteepness   = 3
	xpFullCombo      = 1.10
	xpBestMultiplier = 1.10
)

// XP is the normalized experience a passed play earns. It only depends on the
// play and its map, and is never negative. Failed plays earn nothing.
func XP(s *domain.Score, bm *domain.Beatmap) float64 {
	if s == nil || bm == nil || !s.Passed {
		return 0
	}

	scoreTerm := 1 - math.Exp(-float64(s.Score)/xpScoreScale)
	base := xpScoreWeight*scoreTerm +
		xpRatingWeight*ratingRatio(s) +
		xpComboWeight*comboRatio(s, bm)

	length := math.Min(float64(bm.TotalLength), xpLengthCap)
	if length < 0 {
		length = 0
	}
	timeBonus := 1 + length/xpLengthCap*xpLengthBonus

	xp := base * timeBonus * accuracyCurve(s.Acc) * assistFactor(s.Mode, s.Assists)
	if s.Perfect {
		xp *= xpFullCombo
	}
	xp *= gradeMultiplier(s.Grade)
	if s.Status == domain.StatusBest {
		xp *= xpBestMultiplier
	}
	if xp < 0 || math.IsNaN(xp) {
		return 0
	}
	return math.Round(xp*100) / 100
}

func ratingRatio(s *domain.Score) float64 {
	if s.HypotheticalPP <= 0 {
		// 레이팅이 없으면 정확도로 대체
		return clamp01(s.Acc / 100)
	}
	return clamp01(s.PP / s.HypotheticalPP)
}

func comboRatio(s *domain.Score, bm *domain.Beatmap) float64 {
	if bm.MaxCombo <= 0 {
		if s.Perfect {
			return 1
		}
		return clamp01(s.Acc / 100)
	}
	return clamp01(float64(s.MaxCombo) / float64(bm.MaxCombo))
}

// accuracyCurve is a sigmoid centred on 85%, with a linear penalty below it.
func accuracyCurve(acc float64) float64 {
	curve := 1 / (1 + math.Exp(-(acc-xpAccPivot)/xpAccSteepness))
	if acc < xpAccPivot {
		curve *= math.Max(acc, 0) / xpAccPivot
	}
	return curve
}

// assistFactor discounts plays made with cheat-client assists.
func assistFactor(mode domain.Mode, a domain.AssistValues) float64 {
	var aimWeight, twWeight float64
	switch mode {
	case domain.ModeCheatStd:
		aimWeight, twWeight = 0.4, 0.5
	case domain.ModeCheatCheatStd:
		aimWeight, twWeight = 0.25, 0.3
	default:
		return 1
	}

	f := 1.0
	if a.AimCorrection {
		f *= 1 - aimWeight*clamp01(float64(a.AimCorrectionValue)/100)
	}
	if a.ARChanger {
		f *= 0.9
	}
	if a.Timewarp && a.TimewarpValue > 0 && a.TimewarpValue < 100 {
		f *= 1 - twWeight*(100-a.TimewarpValue)/100
	}
	if a.CSChanger {
		f *= 0.85
	}
	if a.HDRemover {
		f *= 0.95
	}
	return f
}

func gradeMultiplier(g domain.Grade) float64 {
	switch g {
	case domain.GradeX, domain.GradeXH:
		return 1.15
	case domain.GradeS, domain.GradeSH:
		return 1.10
	case domain.GradeA:
		return 1.05
	default:
		return 1
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
