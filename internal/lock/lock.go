package lock

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrNotAcquired means another holder kept the key for the whole attempt window.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker grants exclusive, lease-bounded ownership of a key across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, lease time.Duration) (Guard, error)
}

// Guard is a held lock. Release is idempotent and safe to defer.
type Guard interface {
	Key() string
	Release(ctx context.Context) error
}

func SubmissionKey(checksum string) string { return "score:lock:submission:" + checksum }

// BestKey serialises personal-best changes for one player, map and mode.
func BestKey(userID int64, mapHash string, mode int) string {
	return "score:lock:best:" + itoa(userID) + ":" + mapHash + ":" + itoa(int64(mode))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
