package store

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrInvalidState        = errors.New("operation not allowed in current room state")
	ErrForbidden           = errors.New("only the host may do this")
	ErrInsufficientPlayers = errors.New("need at least 2 players to start")
	ErrNotInRoom           = errors.New("player is not in this room")
	ErrRoundMismatch       = errors.New("submission is not for the room's current round")
)
