package room

// RoomStore is the persistence surface the lifecycle manager drives.
// The in-memory implementation lives in internal/store; the manager
// only depends on this interface so the backing table can change
// without touching lobby logic.
type RoomStore interface {
	Get(id string) (*Room, bool)
	Save(r *Room)
	Delete(id string)
	List() []*Room
}

// UserLocator tracks which room each user currently occupies.
type UserLocator interface {
	RoomOf(userID string) (string, bool)
	Bind(userID, roomID string)
	Unbind(userID string)
}
