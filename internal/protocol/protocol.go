// Package protocol defines the wire envelope and the message/error tables
// shared by the websocket hub and the lobby core.
package protocol

import "time"

// Message is the envelope used in both directions on a connection.
type Message struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// NewMessage stamps an envelope with the current time in milliseconds.
func NewMessage(msgType string, data map[string]any) Message {
	if data == nil {
		data = map[string]any{}
	}
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Client -> server message types.
const (
	TypeJoinRoom     = "JOIN_ROOM"
	TypeLeaveRoom    = "LEAVE_ROOM"
	TypePlayerReady  = "PLAYER_READY"
	TypeLockHero     = "LOCK_HERO"
	TypeAddBot       = "ADD_BOT"
	TypeGameAction   = "GAME_ACTION"
	TypeGameEvent    = "GAME_EVENT"
	TypeChatMessage  = "CHAT_MESSAGE"
	TypeHeartbeatAck = "HEARTBEAT_ACK"
)

// Server -> client message types.
const (
	TypeConnected       = "CONNECTED"
	TypeHeartbeat       = "HEARTBEAT"
	TypeSuperseded      = "SUPERSEDED"
	TypeRoomUpdate      = "ROOM_UPDATE"
	TypePlayerJoined    = "PLAYER_JOINED"
	TypePlayerHeroLock  = "PLAYER_HERO_LOCKED"
	TypeActualGameStart = "ACTUAL_GAME_START"
	TypeGameEnded       = "GAME_ENDED"
	TypeError           = "ERROR"
)

// Error codes carried in ERROR envelopes.
const (
	CodeRoomNotFound    = "ROOM_NOT_FOUND"
	CodeRoomFull        = "ROOM_FULL"
	CodeNotReady        = "NOT_READY"
	CodeNotInRoom       = "NOT_IN_ROOM"
	CodeNotHost         = "NOT_HOST"
	CodeAlreadyStarted  = "ALREADY_STARTED"
	CodeHeroTaken       = "HERO_TAKEN"
	CodeRoomBusy        = "ROOM_BUSY"
	CodeInvalidAction   = "INVALID_ACTION"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL_ERROR"
)

// Retryable reports whether a client may immediately retry the action
// that produced the given error code. Only contention codes qualify;
// state errors require a fresh room-info fetch first.
func Retryable(code string) bool {
	switch code {
	case CodeRoomBusy, CodeHeroTaken, CodeTimeout:
		return true
	}
	return false
}

// ErrorMessage builds an ERROR envelope for the given code.
func ErrorMessage(code, detail string) Message {
	return NewMessage(TypeError, map[string]any{
		"code":      code,
		"message":   detail,
		"retryable": Retryable(code),
	})
}
