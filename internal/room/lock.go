package room

import (
	"sync"
	"time"
)

// lockTable hands out per-room advisory locks. Acquisition never waits:
// a room already held yields ErrRoomBusy immediately, and the caller is
// expected to surface that as retryable. A holder older than the TTL is
// treated as abandoned and its lock can be stolen, so a handler that
// never reaches its release path cannot wedge a room forever.
type lockTable struct {
	mu         sync.Mutex
	ttl        time.Duration
	held       map[string]lockEntry
	seqCounter uint64
}

type lockEntry struct {
	seq        uint64
	acquiredAt time.Time
}

func newLockTable(ttl time.Duration) *lockTable {
	return &lockTable{
		ttl:  ttl,
		held: make(map[string]lockEntry),
	}
}

// acquire takes the lock for roomID and returns its release func.
// The release func is safe to call exactly once from any path; it only
// removes the entry if this acquisition still owns it, so a stolen lock
// released late cannot clobber the thief's hold.
func (t *lockTable) acquire(roomID string) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.held[roomID]; ok && time.Since(e.acquiredAt) < t.ttl {
		return nil, ErrRoomBusy
	}

	t.seqCounter++
	seq := t.seqCounter
	t.held[roomID] = lockEntry{seq: seq, acquiredAt: time.Now()}

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if e, ok := t.held[roomID]; ok && e.seq == seq {
			delete(t.held, roomID)
		}
	}, nil
}
