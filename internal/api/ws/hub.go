package ws

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Elijah-cyy/mishi-server/internal/protocol"
	"github.com/Elijah-cyy/mishi-server/internal/room"
	"github.com/Elijah-cyy/mishi-server/internal/session"
)

// SessionValidator resolves a handshake token to an identity.
type SessionValidator interface {
	Validate(token string) (session.Identity, error)
}

// LobbyManager is the slice of the lifecycle manager the hub drives.
type LobbyManager interface {
	JoinRoom(roomID, userID, name string) (*room.Room, error)
	LeaveRoom(roomID, userID string) (*room.Room, error)
	SetReady(roomID, userID string, ready bool) (bool, error)
	SetHeroLock(roomID, userID string, locked bool, heroID string) error
	AddBot(roomID, requesterID, botID, botName string) (*room.Room, error)
	HandleGameAction(roomID, userID string, data map[string]any) error
	HandleGameEvent(roomID, userID string, data map[string]any) error
	HandleChat(roomID, userID, name, text string) error
	HandleDisconnect(userID string)
	HandleReconnect(userID string)
	RoomOf(userID string) (string, bool)
}

// Hub upgrades authenticated clients and pumps their messages into the
// lobby manager.
type Hub struct {
	registry *Registry
	manager  LobbyManager
	sessions SessionValidator
	logger   *slog.Logger
}

func NewHub(registry *Registry, manager LobbyManager, sessions SessionValidator, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		manager:  manager,
		sessions: sessions,
		logger:   logger,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// HandleWS validates the session token carried as a query parameter,
// upgrades the connection and runs the read loop until the socket dies.
func (h *Hub) HandleWS(c *gin.Context) {
	token := c.Query("token")
	identity, err := h.sessions.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    protocol.CodeUnauthenticated,
			"message": "invalid session token",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "user_id", identity.UserID, "error", err)
		return
	}

	h.registry.Register(identity.UserID, conn)
	h.logger.Info("connection established", "user_id", identity.UserID)

	if err := h.registry.Send(identity.UserID, protocol.NewMessage(protocol.TypeConnected, map[string]any{
		"userId": identity.UserID,
		"name":   identity.Name,
	})); err != nil {
		return
	}

	// A user who already occupies a room is coming back from a dropped
	// or superseded socket; rebind and resync them.
	if roomID, ok := h.manager.RoomOf(identity.UserID); ok {
		h.registry.BindRoom(identity.UserID, roomID)
	}
	h.manager.HandleReconnect(identity.UserID)

	defer func() {
		// Only the current holder of the identity tears down lobby
		// state; a superseded reader exits without touching it.
		if h.registry.Unregister(identity.UserID, conn) {
			_ = conn.Close()
			h.manager.HandleDisconnect(identity.UserID)
			h.logger.Info("connection dropped", "user_id", identity.UserID)
		}
	}()

	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		h.registry.Touch(identity.UserID)
		h.dispatch(identity, msg)
	}
}

// dispatch routes one inbound envelope. Errors go back to the sender as
// ERROR envelopes; nothing here is allowed to panic the connection.
func (h *Hub) dispatch(identity session.Identity, msg protocol.Message) {
	userID := identity.UserID

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("message handler panicked",
				"user_id", userID, "type", msg.Type, "panic", r)
			h.sendError(userID, protocol.CodeInternal, "internal error")
		}
	}()

	switch msg.Type {
	case protocol.TypeHeartbeatAck:
		// Touch above already reset the liveness mark.

	case protocol.TypeJoinRoom:
		roomID := getString(msg.Data, "roomId")
		if _, err := h.manager.JoinRoom(roomID, userID, identity.Name); err != nil {
			h.sendManagerError(userID, err)
			return
		}
		h.registry.BindRoom(userID, roomID)

	case protocol.TypeLeaveRoom:
		roomID, ok := h.manager.RoomOf(userID)
		if !ok {
			h.sendError(userID, protocol.CodeNotInRoom, "not in a room")
			return
		}
		if _, err := h.manager.LeaveRoom(roomID, userID); err != nil {
			h.sendManagerError(userID, err)
			return
		}
		h.registry.BindRoom(userID, "")

	case protocol.TypePlayerReady:
		roomID, ok := h.manager.RoomOf(userID)
		if !ok {
			h.sendError(userID, protocol.CodeNotInRoom, "not in a room")
			return
		}
		ready, _ := msg.Data["isReady"].(bool)
		if _, err := h.manager.SetReady(roomID, userID, ready); err != nil {
			h.sendManagerError(userID, err)
		}

	case protocol.TypeLockHero:
		roomID, ok := h.manager.RoomOf(userID)
		if !ok {
			h.sendError(userID, protocol.CodeNotInRoom, "not in a room")
			return
		}
		locked, _ := msg.Data["isLocked"].(bool)
		heroID := getString(msg.Data, "heroId")
		if err := h.manager.SetHeroLock(roomID, userID, locked, heroID); err != nil {
			h.sendManagerError(userID, err)
		}

	case protocol.TypeAddBot:
		roomID := getString(msg.Data, "roomId")
		if roomID == "" {
			roomID, _ = h.manager.RoomOf(userID)
		}
		botID := getString(msg.Data, "botId")
		botName := getString(msg.Data, "botName")
		if _, err := h.manager.AddBot(roomID, userID, botID, botName); err != nil {
			h.sendManagerError(userID, err)
		}

	case protocol.TypeGameAction:
		roomID, ok := h.manager.RoomOf(userID)
		if !ok {
			h.sendError(userID, protocol.CodeNotInRoom, "not in a room")
			return
		}
		if err := h.manager.HandleGameAction(roomID, userID, msg.Data); err != nil {
			h.sendManagerError(userID, err)
		}

	case protocol.TypeGameEvent:
		roomID, ok := h.manager.RoomOf(userID)
		if !ok {
			h.sendError(userID, protocol.CodeNotInRoom, "not in a room")
			return
		}
		if err := h.manager.HandleGameEvent(roomID, userID, msg.Data); err != nil {
			h.sendManagerError(userID, err)
		}

	case protocol.TypeChatMessage:
		roomID, ok := h.manager.RoomOf(userID)
		if !ok {
			h.sendError(userID, protocol.CodeNotInRoom, "not in a room")
			return
		}
		text := getString(msg.Data, "text")
		if err := h.manager.HandleChat(roomID, userID, identity.Name, text); err != nil {
			h.sendManagerError(userID, err)
		}

	default:
		h.sendError(userID, protocol.CodeInvalidAction, "unknown message type "+msg.Type)
	}
}

func (h *Hub) sendManagerError(userID string, err error) {
	h.sendError(userID, room.CodeFor(err), err.Error())
}

func (h *Hub) sendError(userID, code, detail string) {
	_ = h.registry.Send(userID, protocol.ErrorMessage(code, detail))
}

func getString(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}
