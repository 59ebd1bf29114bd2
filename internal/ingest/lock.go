package ingest

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks serializes imports into the same account within the process.
// The store's advisory lock and unique index still guard across processes.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*refLock)}
}

// lock blocks until the account is free and returns the unlock func.
func (a *accountLocks) lock(id uuid.UUID) func() {
	a.mu.Lock()

	l, ok := a.locks[id]
	if !ok {
		l = &refLock{}
		a.locks[id] = l
	}

	l.refs++
	a.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		a.mu.Lock()
		l.refs--

		if l.refs == 0 {
			delete(a.locks, id)
		}

		a.mu.Unlock()
	}
}
