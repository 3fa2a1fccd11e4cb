package leaderboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Response is everything one leaderboard reply carries.
type Response struct {
	Beatmap       *domain.Beatmap
	Rows          []Row
	PersonalBest  *Row
	PersonalRank  int
	AverageRating float64
	// WithAssists appends the assist columns that cheat clients render.
	WithAssists bool
}

// Missing is the reply for a map the server does not know. needsUpdate tells
// the client a newer version of its file exists.
func Missing(needsUpdate bool) string {
	if needsUpdate {
		return "1|false"
	}
	return "-1|false"
}

// Format renders r in the legacy line format.
func Format(r Response) string {
	bm := r.Beatmap
	var b strings.Builder
	fmt.Fprintf(&b, "%d|false|%d|%d|%d|0|\n", int(bm.Status), bm.ID, bm.SetID, len(r.Rows))
	fmt.Fprintf(&b, "0\n%s\n%.1f\n", bm.FullName(), r.AverageRating)
	if r.PersonalBest != nil {
		writeRow(&b, r.PersonalBest, r.PersonalRank, r.WithAssists)
	}
	b.WriteByte('\n')
	for i := range r.Rows {
		writeRow(&b, &r.Rows[i], i+1, r.WithAssists)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeRow(b *strings.Builder, r *Row, rank int, withAssists bool) {
	fields := []string{
		strconv.FormatInt(r.ScoreID, 10),
		r.Name,
		strconv.FormatInt(int64(math.Round(r.Value)), 10),
		strconv.Itoa(r.MaxCombo),
		strconv.Itoa(r.N50),
		strconv.Itoa(r.N100),
		strconv.Itoa(r.N300),
		strconv.Itoa(r.NMiss),
		strconv.Itoa(r.NKatu),
		strconv.Itoa(r.NGeki),
		boolDigit(r.Perfect),
		strconv.FormatUint(uint64(r.Mods), 10),
		strconv.FormatInt(r.UserID, 10),
		strconv.Itoa(rank),
		strconv.FormatInt(r.PlayTime.Unix(), 10),
		"1",
	}
	if withAssists {
		a := r.Assists
		fields = append(fields,
			boolDigit(a.AimCorrection),
			strconv.Itoa(a.AimCorrectionValue),
			boolDigit(a.ARChanger),
			strconv.FormatFloat(a.ARChangerValue, 'f', -1, 64),
			boolDigit(a.Timewarp),
			strconv.FormatFloat(a.TimewarpValue, 'f', -1, 64),
			boolDigit(a.CSChanger),
			boolDigit(a.HDRemover),
		)
	}
	b.WriteString(strings.Join(fields, "|"))
}

func boolDigit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
