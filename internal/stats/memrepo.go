package stats

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// BestSource lists a player's Best scores on ranked or approved maps.
type BestSource func(userID int64, mode domain.Mode) []*domain.Score

type statsKey struct {
	user int64
	mode domain.Mode
}

type memrepo struct {
	mu    sync.RWMutex
	rows  map[statsKey]*domain.Stats
	bests BestSource
}

// NewMemoryRepository keeps stats in memory and reads ratings from bests.
func NewMemoryRepository(bests BestSource) Repository {
	return &memrepo{rows: make(map[statsKey]*domain.Stats), bests: bests}
}

func (m *memrepo) Fetch(ctx context.Context, userID int64, mode domain.Mode) (*domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.rows[statsKey{userID, mode}]; ok {
		return st.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (m *memrepo) Save(ctx context.Context, st *domain.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := st.Clone()
	cp.Rank = 0
	m.rows[statsKey{st.UserID, st.Mode}] = cp
	return nil
}

func (m *memrepo) sorted(userID int64, mode domain.Mode) []*domain.Score {
	if m.bests == nil {
		return nil
	}
	list := m.bests(userID, mode)
	sort.SliceStable(list, func(i, j int) bool { return list[i].PP > list[j].PP })
	return list
}

func (m *memrepo) TopRatings(ctx context.Context, userID int64, mode domain.Mode) ([]Entry, error) {
	list := m.sorted(userID, mode)
	if len(list) > TopScoreLimit {
		list = list[:TopScoreLimit]
	}
	out := make([]Entry, 0, len(list))
	for _, s := range list {
		out = append(out, Entry{PP: s.PP, Acc: s.Acc})
	}
	return out, nil
}

func (m *memrepo) RankedCount(ctx context.Context, userID int64, mode domain.Mode) (int, error) {
	return len(m.sorted(userID, mode)), nil
}
