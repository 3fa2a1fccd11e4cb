package player

import (
	"context"
	"sync"
	"time"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// MemoryRepository is an in-memory Repository for tests and database-less runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[int64]*domain.User
	friends  map[int64][]int64
	activity map[int64]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[int64]*domain.User),
		friends:  make(map[int64][]int64),
		activity: make(map[int64]time.Time),
	}
}

// Put stores a copy of u.
func (m *MemoryRepository) Put(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

// AddFriend records a one-way friendship.
func (m *MemoryRepository) AddFriend(userID, friendID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.friends[userID] = append(m.friends[userID], friendID)
}

// LatestActivity returns the last stamped activity time.
func (m *MemoryRepository) LatestActivity(userID int64) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.activity[userID]
	return at, ok
}

func (m *MemoryRepository) FetchByName(ctx context.Context, name string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryRepository) FetchByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) FriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.friends[userID]...), nil
}

func (m *MemoryRepository) UpdateLatestActivity(ctx context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[userID] = at
	return nil
}
