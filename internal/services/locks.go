package services

import (
	"sync"

	"github.com/google/uuid"
)

// ownerLocks serializes structural mutations (move, delete) per owner so two
// concurrent moves on overlapping subtrees cannot read each other's
// half-applied parent chains. Reads and uploads stay unserialized.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *ownerLocks) forOwner(owner uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[owner]
	if !ok {
		m = &sync.Mutex{}
		l.locks[owner] = m
	}
	return m
}
