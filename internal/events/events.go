package events

import "time"

type EventType string

const (
	PLAYER_JOINED     EventType = "PLAYER_JOINED"
	COUNTDOWN_STARTED EventType = "COUNTDOWN_STARTED"
	GAME_STARTED      EventType = "GAME_STARTED"
	ROUND_ADVANCED    EventType = "ROUND_ADVANCED"
	GAME_FINISHED     EventType = "GAME_FINISHED"
	ROOM_DELETED      EventType = "ROOM_DELETED"
)

// SseEvent wraps a typed payload for the listener fanout. Payloads carry
// public room data only: no scores, no per-player completion.
type SseEvent struct {
	EventType EventType `json:"event_type"`
	Data      any       `json:"data"`
}

type PlayerJoined struct {
	RoomID      string `json:"room_id"`
	Player      string `json:"player"`
	PlayerCount int    `json:"player_count"`
}

type CountdownStarted struct {
	RoomID string    `json:"room_id"`
	EndsAt time.Time `json:"ends_at"`
}

type GameStarted struct {
	RoomID       string `json:"room_id"`
	CurrentRound int    `json:"current_round"`
}

type RoundAdvanced struct {
	RoomID       string `json:"room_id"`
	CurrentRound int    `json:"current_round"`
}

type GameFinished struct {
	RoomID string `json:"room_id"`
}

type RoomDeleted struct {
	RoomID string `json:"room_id"`
}
