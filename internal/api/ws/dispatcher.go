package ws

import (
	"log/slog"

	"github.com/Elijah-cyy/mishi-server/internal/protocol"
	"github.com/Elijah-cyy/mishi-server/internal/room"
)

// Dispatcher fans room-scoped events out through the registry. It
// resolves the member list from the room store at send time, not from a
// cached snapshot, so departed members never receive stale broadcasts.
type Dispatcher struct {
	store    room.RoomStore
	registry *Registry
	logger   *slog.Logger
}

func NewDispatcher(roomStore room.RoomStore, registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: roomStore, registry: registry, logger: logger}
}

// BroadcastToRoom delivers msg to every live, non-excluded, non-bot
// member connection and returns the delivered count.
func (d *Dispatcher) BroadcastToRoom(roomID string, msg protocol.Message, excluding ...string) int {
	r, ok := d.store.Get(roomID)
	if !ok {
		d.logger.Warn("broadcast to unknown room", "room_id", roomID, "type", msg.Type)
		return 0
	}
	ids := make([]string, 0, len(r.Members))
	for i := range r.Members {
		if !r.Members[i].IsBot {
			ids = append(ids, r.Members[i].UserID)
		}
	}
	delivered := d.registry.Broadcast(ids, msg, excluding...)
	d.logger.Debug("room broadcast",
		"room_id", roomID, "type", msg.Type, "delivered", delivered, "members", len(ids))
	return delivered
}

// SendToUser delivers msg to a single identity.
func (d *Dispatcher) SendToUser(userID string, msg protocol.Message) error {
	return d.registry.Send(userID, msg)
}
