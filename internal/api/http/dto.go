package http

// LoginRequest is the payload for /api/auth/login. UserID is optional;
// a guest id is minted when it is absent.
type LoginRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// CreateRoomRequest is the payload for POST /api/rooms.
type CreateRoomRequest struct {
	Name      string         `json:"name"`
	Capacity  int            `json:"capacity"`
	TimeLimit int            `json:"timeLimit"`
	GameMode  string         `json:"gameMode"`
	Settings  map[string]any `json:"settings"`
}

// ReadyRequest is the payload for POST /api/rooms/:id/ready.
type ReadyRequest struct {
	IsReady bool `json:"isReady"`
}

// AddBotRequest is the payload for POST /api/rooms/:id/bots. The bot
// identity and name come from the caller.
type AddBotRequest struct {
	BotID   string `json:"botId"`
	BotName string `json:"botName"`
}
