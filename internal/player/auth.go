package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Authenticator verifies the client's password digest against the stored bcrypt hash.
// Successful checks are cached per hash so repeat submissions skip bcrypt.
type Authenticator struct {
	repo Repository

	mu       sync.RWMutex
	verified map[string]string // bcrypt hash -> password md5
}

func NewAuthenticator(repo Repository) *Authenticator {
	return &Authenticator{repo: repo, verified: make(map[string]string)}
}

// Authenticate returns the player named name when passwordMD5 matches.
// Unknown players and wrong passwords both yield domain.ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, name, passwordMD5 string) (*domain.User, error) {
	u, err := a.repo.FetchByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown player %q", domain.ErrUnauthorized, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if !a.verify(u.PasswordBcrypt, passwordMD5) {
		return nil, fmt.Errorf("%w: bad password for %q", domain.ErrUnauthorized, name)
	}
	return u, nil
}

func (a *Authenticator) verify(hash, passwordMD5 string) bool {
	if hash == "" || passwordMD5 == "" {
		return false
	}
	a.mu.RLock()
	cached, ok := a.verified[hash]
	a.mu.RUnlock()
	if ok {
		return cached == passwordMD5
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(passwordMD5)) != nil {
		return false
	}
	a.mu.Lock()
	a.verified[hash] = passwordMD5
	a.mu.Unlock()
	return true
}
