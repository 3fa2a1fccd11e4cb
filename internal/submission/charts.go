package submission

import (
	"fmt"
	"math"
	"strings"

	"github.com/park285/rhythm-score-server/internal/domain"
)

const approvedDateLayout = "2006-01-02 15:04:05"

// ChartInput is everything the post-submission panel shows.
type ChartInput struct {
	Domain   string
	Beatmap  *domain.Beatmap
	Score    *domain.Score
	PrevBest *domain.Score
	PrevRank int
	Before   *domain.Stats
	After    *domain.Stats
	// Achievements is the already-formatted unlock list. Empty when none.
	Achievements string
}

func (o *outcome) chartInput(publicDomain string) ChartInput {
	return ChartInput{
		Domain:   publicDomain,
		Beatmap:  o.bm,
		Score:    o.sc,
		PrevBest: o.prevBest,
		PrevRank: o.prevRank,
		Before:   o.before,
		After:    o.after,
	}
}

// BuildCharts renders the pipe-delimited chart body the client parses.
func BuildCharts(in ChartInput) string {
	bm, sc := in.Beatmap, in.Score
	before, after := in.Before, in.After
	if before == nil {
		before = &domain.Stats{}
	}
	if after == nil {
		after = before
	}

	var c charts
	c.add("beatmapId:%d", bm.ID)
	c.add("beatmapSetId:%d", bm.SetID)
	c.add("beatmapPlaycount:%d", bm.Plays)
	c.add("beatmapPasscount:%d", bm.Passes)
	c.add("approvedDate:%s", bm.LastUpdate.UTC().Format(approvedDateLayout))
	c.newline()

	c.add("chartId:beatmap")
	c.add("chartUrl:https://osu.%s/beatmapsets/%d", in.Domain, bm.SetID)
	c.add("chartName:Beatmap Ranking")
	prev := in.PrevBest
	if prev == nil {
		prev = &domain.Score{}
	}
	c.pair("rank", in.PrevRank, sc.Rank)
	c.pair("rankedScore", prev.Score, sc.Score)
	c.pair("totalScore", prev.Score, sc.Score)
	c.pair("maxCombo", prev.MaxCombo, sc.MaxCombo)
	c.pair("accuracy", acc(prev.Acc), acc(sc.Acc))
	c.pair("pp", int64(math.Round(prev.PP)), int64(math.Round(sc.PP)))
	c.add("onlineScoreId:%d", sc.ID)
	c.newline()

	c.add("chartId:overall")
	c.add("chartUrl:https://osu.%s/u/%d", in.Domain, sc.UserID)
	c.add("chartName:Overall Ranking")
	c.pair("rank", before.Rank, after.Rank)
	c.pair("rankedScore", before.RankedScore, after.RankedScore)
	c.pair("totalScore", before.TotalScore, after.TotalScore)
	c.pair("maxCombo", before.MaxCombo, after.MaxCombo)
	c.pair("accuracy", acc(before.Acc), acc(after.Acc))
	c.pair("pp", before.PP, after.PP)
	c.add("achievements-new:%s", in.Achievements)

	return strings.Join(c.parts, "|")
}

type charts struct{ parts []string }

func (c *charts) add(format string, args ...any) {
	c.parts = append(c.parts, fmt.Sprintf(format, args...))
}

func (c *charts) newline() { c.parts = append(c.parts, "\n") }

func (c *charts) pair(key string, before, after any) {
	c.add("%sBefore:%v", key, before)
	c.add("%sAfter:%v", key, after)
}

func acc(v float64) string { return fmt.Sprintf("%.2f", v) }
