package room

import (
	"errors"

	"github.com/Elijah-cyy/mishi-server/internal/protocol"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrNotInRoom      = errors.New("member not in room")
	ErrNotHost        = errors.New("member is not the host")
	ErrNotReady       = errors.New("not all members are ready")
	ErrNotFull        = errors.New("room capacity not met")
	ErrWrongStatus    = errors.New("room not in expected status")
	ErrAlreadyStarted = errors.New("room already started")
	ErrHeroTaken      = errors.New("hero already locked by another member")
	ErrRoomBusy       = errors.New("room is locked by another operation")
	ErrInvalidArg     = errors.New("invalid argument")
)

// CodeFor maps a lifecycle error to its wire error code. Unknown errors
// map to INTERNAL_ERROR so handler boundaries never leak internals.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, ErrNotInRoom):
		return protocol.CodeNotInRoom
	case errors.Is(err, ErrNotHost):
		return protocol.CodeNotHost
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrNotFull):
		return protocol.CodeNotReady
	case errors.Is(err, ErrAlreadyStarted), errors.Is(err, ErrWrongStatus):
		return protocol.CodeAlreadyStarted
	case errors.Is(err, ErrHeroTaken):
		return protocol.CodeHeroTaken
	case errors.Is(err, ErrRoomBusy):
		return protocol.CodeRoomBusy
	case errors.Is(err, ErrInvalidArg):
		return protocol.CodeInvalidAction
	default:
		return protocol.CodeInternal
	}
}
