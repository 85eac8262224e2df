// Package directory is the identity collaborator boundary: the core
// resolves user ids to display names through it and never mutates
// users. The in-memory implementation stands in for the account
// subsystem that owns the real user records.
package directory

import (
	"sync"

	"github.com/ekoclu/aniparty/internal/domain"
)

type Directory interface {
	Lookup(id domain.UserID) (domain.User, bool)
}

type InMemory struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[domain.UserID]domain.User)}
}

func (d *InMemory) Lookup(id domain.UserID) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

// Seed registers a user record, replacing any previous entry.
func (d *InMemory) Seed(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}
