package payment

import (
	"sync"

	"github.com/google/uuid"
)

// paymentLocks serializes orchestrator operations per payment id. Entries
// are reference-counted so the map does not grow with payment volume.
type paymentLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPaymentLocks() *paymentLocks {
	return &paymentLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock blocks until the per-payment mutex is held and returns the release
// function. Distinct payment ids proceed independently.
func (l *paymentLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}
