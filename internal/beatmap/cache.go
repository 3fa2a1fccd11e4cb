package beatmap

import (
	"sync"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Cache is the in-process tier. Entries are indexed by hash and by id and
// handed out as copies.
type Cache struct {
	mu     sync.RWMutex
	byHash map[string]*domain.Beatmap
	byID   map[int64]*domain.Beatmap
}

func NewCache() *Cache {
	return &Cache{
		byHash: make(map[string]*domain.Beatmap),
		byID:   make(map[int64]*domain.Beatmap),
	}
}

func (c *Cache) Get(k Key) (*domain.Beatmap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bm := c.lookup(k)
	if bm == nil {
		return nil, false
	}
	return bm.Clone(), true
}

func (c *Cache) Put(bm *domain.Beatmap) {
	if bm == nil {
		return
	}
	cp := bm.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	// 같은 id에서 해시가 바뀐 이전 항목 제거
	if old, ok := c.byID[cp.ID]; ok && old.MD5 != cp.MD5 {
		delete(c.byHash, old.MD5)
	}
	c.byHash[cp.MD5] = cp
	c.byID[cp.ID] = cp
}

// Invalidate removes the entry under k from both indexes.
func (c *Cache) Invalidate(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bm := c.lookup(k)
	if bm == nil {
		if k.Hash != "" {
			delete(c.byHash, k.Hash)
		}
		return
	}
	delete(c.byHash, bm.MD5)
	delete(c.byID, bm.ID)
}

// update applies fn to the cached entry for k, if present.
func (c *Cache) update(k Key, fn func(*domain.Beatmap)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bm := c.lookup(k); bm != nil {
		fn(bm)
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

func (c *Cache) lookup(k Key) *domain.Beatmap {
	if k.Hash != "" {
		return c.byHash[k.Hash]
	}
	return c.byID[k.ID]
}
