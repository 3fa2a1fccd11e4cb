package leaderboard

import (
	"strings"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Kind selects the extra predicate a leaderboard applies.
type Kind int

const (
	KindTop Kind = iota
	KindMods
	KindFriends
	KindCountry

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindMods:
		return "mods"
	case KindFriends:
		return "friends"
	case KindCountry:
		return "country"
	default:
		return "top"
	}
}

// Filter is a tagged variant; only the field matching Kind is meaningful.
type Filter struct {
	Kind    Kind
	Mods    domain.Mods
	Friends []int64
	Country string
}

func Top() Filter                 { return Filter{Kind: KindTop} }
func ByMods(m domain.Mods) Filter { return Filter{Kind: KindMods, Mods: m} }
func Friends(ids []int64) Filter  { return Filter{Kind: KindFriends, Friends: ids} }
func Country(code string) Filter  { return Filter{Kind: KindCountry, Country: code} }

// FilterFromClient maps the client's leaderboard type: 0 and 1 are the
// global board, 2 mods, 3 friends, 4 country. Unknown values fall back to Top.
func FilterFromClient(kind int, mods domain.Mods, friends []int64, country string) Filter {
	switch kind {
	case 2:
		return ByMods(mods)
	case 3:
		return Friends(friends)
	case 4:
		return Country(country)
	default:
		return Top()
	}
}

// Metric is the column a leaderboard is ordered by.
type Metric int

const (
	MetricPP Metric = iota
	MetricScore
	MetricXP

	metricCount
)

func (m Metric) String() string {
	switch m {
	case MetricScore:
		return "score"
	case MetricXP:
		return "xp"
	default:
		return "pp"
	}
}

// MetricFor resolves a player's preferred metric on mode. Without a
// preference the board uses pp, or XP where pp is not meaningful.
func MetricFor(preferred string, mode domain.Mode) Metric {
	switch strings.ToLower(strings.TrimSpace(preferred)) {
	case "pp":
		return MetricPP
	case "score":
		return MetricScore
	case "xp":
		return MetricXP
	}
	if !mode.RatingSupported() {
		return MetricXP
	}
	return MetricPP
}
