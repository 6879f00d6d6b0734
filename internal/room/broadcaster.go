package room

import "github.com/Elijah-cyy/mishi-server/internal/protocol"

// Broadcaster fans room-scoped events out to live member connections.
// Implemented by the websocket dispatcher; defined here so the lifecycle
// manager does not import the transport layer.
type Broadcaster interface {
	// BroadcastToRoom delivers msg to every live, non-excluded member
	// connection and returns the delivered count. It never fails the
	// whole call because of one dead socket.
	BroadcastToRoom(roomID string, msg protocol.Message, excluding ...string) int

	// SendToUser delivers msg to a single identity's live connection.
	SendToUser(userID string, msg protocol.Message) error
}
