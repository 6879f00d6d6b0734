package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Elijah-cyy/mishi-server/internal/config"
	"github.com/Elijah-cyy/mishi-server/internal/protocol"
	"github.com/Elijah-cyy/mishi-server/internal/room"
	"github.com/Elijah-cyy/mishi-server/internal/session"
)

const identityKey = "identity"

// AuthMiddleware resolves the bearer token (or ?token=) to an identity
// and stores it on the request context.
func AuthMiddleware(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		identity, err := sessions.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    protocol.CodeUnauthenticated,
				"message": "invalid session token",
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) session.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(session.Identity)
	return identity
}

// statusFor maps wire error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case protocol.CodeRoomNotFound, protocol.CodeNotInRoom:
		return http.StatusNotFound
	case protocol.CodeNotHost:
		return http.StatusForbidden
	case protocol.CodeUnauthenticated:
		return http.StatusUnauthorized
	case protocol.CodeRoomFull, protocol.CodeRoomBusy, protocol.CodeNotReady,
		protocol.CodeAlreadyStarted, protocol.CodeHeroTaken:
		return http.StatusConflict
	case protocol.CodeInvalidAction:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	code := room.CodeFor(err)
	c.JSON(statusFor(code), gin.H{
		"code":      code,
		"message":   err.Error(),
		"retryable": protocol.Retryable(code),
	})
}

// LoginHandler issues a session token for a user identity.
func LoginHandler(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		token, identity := sessions.Issue(req.UserID, req.Name)
		c.JSON(http.StatusOK, gin.H{
			"token":  token,
			"userId": identity.UserID,
			"name":   identity.Name,
		})
	}
}

// LogoutHandler revokes the caller's session token.
func LogoutHandler(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		sessions.Revoke(token)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// ListRoomsHandler returns every room, for the lobby browser.
func ListRoomsHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": rm.ListRooms()})
	}
}

// CreateRoomHandler creates a room hosted by the caller.
func CreateRoomHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.BindJSON(&req); err != nil || req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room name required"})
			return
		}
		identity := identityFrom(c)
		r, err := rm.CreateRoom(identity.UserID, identity.Name, req.Name,
			req.Capacity, req.TimeLimit, req.GameMode, req.Settings)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r})
	}
}

// GetRoomHandler returns one room's current state, for client resync.
func GetRoomHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := rm.Snapshot(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r})
	}
}

// JoinRoomHandler adds the caller to a room.
func JoinRoomHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		r, err := rm.JoinRoom(c.Param("id"), identity.UserID, identity.Name)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r})
	}
}

// LeaveRoomHandler removes the caller from a room.
func LeaveRoomHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		r, err := rm.LeaveRoom(c.Param("id"), identity.UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r})
	}
}

// ReadyHandler toggles the caller's ready flag.
func ReadyHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReadyRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		identity := identityFrom(c)
		allReady, err := rm.SetReady(c.Param("id"), identity.UserID, req.IsReady)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"allReady": allReady})
	}
}

// StartHandler moves the room into character select. Host only.
func StartHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		r, err := rm.StartCharacterSelect(c.Param("id"), identity.UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r})
	}
}

// AddBotHandler fills a seat with a bot. Host only.
func AddBotHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddBotRequest
		if err := c.BindJSON(&req); err != nil || req.BotID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "botId required"})
			return
		}
		identity := identityFrom(c)
		r, err := rm.AddBot(c.Param("id"), identity.UserID, req.BotID, req.BotName)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": r})
	}
}

// MatchHandler returns the live match snapshot for a playing room.
func MatchHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := rm.MatchSnapshot(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": snap})
	}
}

// EndMatchHandler finishes a playing room and returns the results.
func EndMatchHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		result, err := rm.EndMatch(c.Param("id"), identity.UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

// ConfigHandler exposes the non-sensitive runtime tuning values.
func ConfigHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"minCapacity":      cfg.MinCapacity,
			"maxCapacity":      cfg.MaxCapacity,
			"defaultTimeLimit": cfg.DefaultTimeLimit,
			"mapSize":          cfg.MapSize,
			"heroes":           room.DefaultHeroPool,
		})
	}
}
