package beatmap

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// memrepo is an in-memory Repository for tests and local runs without a database.
type memrepo struct {
	mu   sync.RWMutex
	byID map[int64]*domain.Beatmap

	deleted []int64
}

func NewMemoryRepository() Repository {
	return &memrepo{byID: make(map[int64]*domain.Beatmap)}
}

func (m *memrepo) FetchByHash(ctx context.Context, md5 string) (*domain.Beatmap, error) {
	return m.find(func(bm *domain.Beatmap) bool { return bm.MD5 == md5 })
}

func (m *memrepo) FetchByID(ctx context.Context, id int64) (*domain.Beatmap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if bm, ok := m.byID[id]; ok {
		return bm.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (m *memrepo) FetchByFilename(ctx context.Context, filename string) (*domain.Beatmap, error) {
	return m.find(func(bm *domain.Beatmap) bool { return bm.Filename == filename })
}

func (m *memrepo) find(match func(*domain.Beatmap) bool) (*domain.Beatmap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, bm := range m.byID {
		if match(bm) {
			return bm.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memrepo) FetchBySet(ctx context.Context, setID int64) ([]*domain.Beatmap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Beatmap
	for _, bm := range m.byID {
		if bm.SetID == setID {
			out = append(out, bm.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memrepo) Upsert(ctx context.Context, bm *domain.Beatmap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := bm.Clone()
	if old, ok := m.byID[cp.ID]; ok && old.Frozen {
		cp.Status = old.Status
		cp.Frozen = true
	}
	m.byID[cp.ID] = cp
	return nil
}

func (m *memrepo) DeleteWithScores(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.byID, id)
		m.deleted = append(m.deleted, id)
	}
	return nil
}

func (m *memrepo) StampSetChecked(ctx context.Context, setID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bm := range m.byID {
		if bm.SetID == setID {
			bm.LastCatalogCheck = at
		}
	}
	return nil
}

func (m *memrepo) IncrementPlaycount(ctx context.Context, md5 string, passed bool) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bm := range m.byID {
		if bm.MD5 == md5 {
			bm.Plays++
			if passed {
				bm.Passes++
			}
			return bm.Plays, bm.Passes, nil
		}
	}
	return 0, 0, domain.ErrNotFound
}

// Deleted lists ids removed through DeleteWithScores.
func (m *memrepo) Deleted() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.deleted...)
}
