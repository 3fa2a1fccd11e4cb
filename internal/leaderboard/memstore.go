package leaderboard

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// MemoryStore is an in-memory Store for tests and database-less runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []memEntry
	ratings map[string][]int
}

type memEntry struct {
	score *domain.Score
	user  domain.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ratings: make(map[string][]int)}
}

// Add records a score together with the player who set it.
func (m *MemoryStore) Add(s *domain.Score, u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, memEntry{score: s.Clone(), user: *u})
}

// Rate records a player's rating of a map.
func (m *MemoryStore) Rate(mapHash string, rating int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings[mapHash] = append(m.ratings[mapHash], rating)
}

func metricValue(s *domain.Score, metric Metric) float64 {
	switch metric {
	case MetricScore:
		return float64(s.Score)
	case MetricXP:
		return s.XP
	default:
		return s.PP
	}
}

func (e memEntry) row(metric Metric) Row {
	s := e.score
	return Row{
		ScoreID: s.ID, UserID: e.user.ID, Name: e.user.DisplayName(), Value: metricValue(s, metric),
		MaxCombo: s.MaxCombo, N300: s.N300, N100: s.N100, N50: s.N50, NMiss: s.NMiss,
		NGeki: s.NGeki, NKatu: s.NKatu, Perfect: s.Perfect, Mods: s.Mods, PlayTime: s.PlayTime,
		Assists: s.Assists,
	}
}

func (m *MemoryStore) Scores(ctx context.Context, q Query) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Row
	for _, e := range m.entries {
		s := e.score
		if s.MapHash != q.MapHash || s.Mode != q.Mode || s.Status != domain.StatusBest {
			continue
		}
		if e.user.Restricted() && e.user.ID != q.RequesterID {
			continue
		}
		if !matches(q.Filter, e) {
			continue
		}
		out = append(out, e.row(q.Metric))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > PageSize {
		out = out[:PageSize]
	}
	return out, nil
}

func matches(f Filter, e memEntry) bool {
	switch f.Kind {
	case KindMods:
		return e.score.Mods == f.Mods
	case KindFriends:
		for _, id := range f.Friends {
			if id == e.user.ID {
				return true
			}
		}
		return false
	case KindCountry:
		return e.user.Country == f.Country
	default:
		return true
	}
}

func (m *MemoryStore) PersonalBest(ctx context.Context, mapHash string, mode domain.Mode, userID int64, metric Metric) (*Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Row
	for _, e := range m.entries {
		s := e.score
		if s.MapHash != mapHash || s.Mode != mode || s.UserID != userID || s.Status != domain.StatusBest {
			continue
		}
		r := e.row(metric)
		if best == nil || r.Value > best.Value {
			best = &r
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (m *MemoryStore) CountBetter(ctx context.Context, mapHash string, mode domain.Mode, metric Metric, value float64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		s := e.score
		if s.MapHash == mapHash && s.Mode == mode && s.Status == domain.StatusBest &&
			!e.user.Restricted() && metricValue(s, metric) > value {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) AverageRating(ctx context.Context, mapHash string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs := m.ratings[mapHash]
	if len(rs) == 0 {
		return 0, nil
	}
	sum := 0
	for _, r := range rs {
		sum += r
	}
	return float64(sum) / float64(len(rs)), nil
}
