package beatmap

import (
	"time"

	"github.com/park285/rhythm-score-server/internal/domain"
)

const (
	baseRefreshInterval = 2 * time.Hour
	maxRefreshInterval  = 24 * time.Hour
	// 셋에서 가장 오래된 난이도의 마지막 갱신 이후 1년마다 추가
	refreshGrowthPerYear = 5 * time.Hour
)

// RefreshInterval is how long a set may go without a catalog check.
func RefreshInterval(set []*domain.Beatmap, now time.Time) time.Duration {
	var oldest time.Time
	for _, bm := range set {
		if bm.LastUpdate.IsZero() {
			continue
		}
		if oldest.IsZero() || bm.LastUpdate.Before(oldest) {
			oldest = bm.LastUpdate
		}
	}
	if oldest.IsZero() || !now.After(oldest) {
		return baseRefreshInterval
	}
	days := now.Sub(oldest).Hours() / 24
	grown := baseRefreshInterval + time.Duration(days/365*float64(refreshGrowthPerYear))
	return min(grown, maxRefreshInterval)
}

// IsStale reports whether bm must be re-checked against the catalog.
func IsStale(bm *domain.Beatmap, set []*domain.Beatmap, now time.Time) bool {
	if bm.Frozen {
		return false
	}
	if bm.LastCatalogCheck.IsZero() {
		return true
	}
	if len(set) == 0 {
		set = []*domain.Beatmap{bm}
	}
	return now.After(bm.LastCatalogCheck.Add(RefreshInterval(set, now)))
}
