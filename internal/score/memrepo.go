package score

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// MemoryRepository is an in-memory Repository for tests and database-less runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	scores []*domain.Score

	names      map[int64]string
	restricted map[int64]bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		names:      make(map[int64]string),
		restricted: make(map[int64]bool),
	}
}

// SetUser registers the display name and restriction of a player.
func (m *MemoryRepository) SetUser(id int64, name string, restricted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[id] = name
	m.restricted[id] = restricted
}

// All returns copies of every stored score in insertion order.
func (m *MemoryRepository) All() []*domain.Score {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Score, 0, len(m.scores))
	for _, s := range m.scores {
		out = append(out, s.Clone())
	}
	return out
}

func (m *MemoryRepository) FetchByChecksum(ctx context.Context, checksum string) (*domain.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.scores {
		if s.OnlineChecksum == checksum {
			return s.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryRepository) FetchBest(ctx context.Context, userID int64, mapHash string, mode domain.Mode) (*domain.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.Score
	for _, s := range m.scores {
		if s.UserID == userID && s.MapHash == mapHash && s.Mode == mode && s.Status == domain.StatusBest {
			if best == nil || s.PP > best.PP {
				best = s
			}
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best.Clone(), nil
}

func (m *MemoryRepository) CountBetter(ctx context.Context, mapHash string, mode domain.Mode, pp float64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.rankedLocked(mapHash, mode) {
		if s.PP > pp {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) FetchFirstPlace(ctx context.Context, mapHash string, mode domain.Mode) (*FirstPlace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ranked := m.rankedLocked(mapHash, mode)
	if len(ranked) == 0 {
		return nil, domain.ErrNotFound
	}
	top := ranked[0]
	return &FirstPlace{UserID: top.UserID, Name: m.names[top.UserID], ScoreID: top.ID, PP: top.PP}, nil
}

// rankedLocked returns the Best scores of unrestricted players, highest pp first.
// 호출자가 m.mu를 잡고 있어야 함.
func (m *MemoryRepository) rankedLocked(mapHash string, mode domain.Mode) []*domain.Score {
	var out []*domain.Score
	for _, s := range m.scores {
		if s.MapHash == mapHash && s.Mode == mode && s.Status == domain.StatusBest && !m.restricted[s.UserID] {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PP > out[j].PP })
	return out
}

func (m *MemoryRepository) InsertWithDemotion(ctx context.Context, s *domain.Score) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.scores {
		if existing.OnlineChecksum == s.OnlineChecksum {
			return 0, domain.ErrDuplicateSubmission
		}
	}
	if s.Status == domain.StatusBest {
		for _, existing := range m.scores {
			if existing.UserID == s.UserID && existing.MapHash == s.MapHash &&
				existing.Mode == s.Mode && existing.Status == domain.StatusBest {
				existing.Status = domain.StatusSubmitted
			}
		}
	}
	m.nextID++
	cp := s.Clone()
	cp.ID = m.nextID
	m.scores = append(m.scores, cp)
	return cp.ID, nil
}
