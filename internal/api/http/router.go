package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Elijah-cyy/mishi-server/internal/api/ws"
	"github.com/Elijah-cyy/mishi-server/internal/config"
	"github.com/Elijah-cyy/mishi-server/internal/room"
	"github.com/Elijah-cyy/mishi-server/internal/session"
)

func NewRouter(rm *room.Manager, hub *ws.Hub, sessions *session.Store, cfg config.Config) *gin.Engine {
	r := gin.Default()

	// Persistent connection endpoint; the hub validates the token itself
	// since it arrives as a query parameter on the upgrade request.
	r.GET("/ws", hub.HandleWS)

	r.POST("/api/auth/login", LoginHandler(sessions))
	r.GET("/api/config", ConfigHandler(cfg))

	api := r.Group("/api", AuthMiddleware(sessions))
	{
		api.POST("/auth/logout", LogoutHandler(sessions))
		api.GET("/rooms", ListRoomsHandler(rm))
		api.POST("/rooms", CreateRoomHandler(rm))
		api.GET("/rooms/:id", GetRoomHandler(rm))
		api.POST("/rooms/:id/join", JoinRoomHandler(rm))
		api.POST("/rooms/:id/leave", LeaveRoomHandler(rm))
		api.POST("/rooms/:id/ready", ReadyHandler(rm))
		api.POST("/rooms/:id/start", StartHandler(rm))
		api.POST("/rooms/:id/bots", AddBotHandler(rm))
		api.GET("/rooms/:id/match", MatchHandler(rm))
		api.POST("/rooms/:id/end", EndMatchHandler(rm))
	}

	return r
}
