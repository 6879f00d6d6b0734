// Package store holds the process-wide mutable tables behind narrow
// accessor interfaces. No business logic lives here.
package store

import (
	"sync"

	"github.com/Elijah-cyy/mishi-server/internal/room"
)

// MemoryStore is the in-memory room table. All access goes through the
// accessors; no component reaches into the map directly. It satisfies
// room.RoomStore.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: map[string]*room.Room{},
	}
}

func (m *MemoryStore) Get(id string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

func (m *MemoryStore) Save(r *room.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
}

func (m *MemoryStore) List() []*room.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

// UserIndex maps a user identity to the room it currently occupies. It
// satisfies room.UserLocator.
type UserIndex struct {
	mu    sync.RWMutex
	byUID map[string]string
}

func NewUserIndex() *UserIndex {
	return &UserIndex{byUID: map[string]string{}}
}

func (u *UserIndex) RoomOf(userID string) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id, ok := u.byUID[userID]
	return id, ok
}

func (u *UserIndex) Bind(userID, roomID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.byUID[userID] = roomID
}

func (u *UserIndex) Unbind(userID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.byUID, userID)
}
