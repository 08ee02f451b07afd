package store

import (
	"sync"
	"time"
)

type RoomState string

const (
	StateWaiting    RoomState = "WAITING"
	StateCountdown  RoomState = "COUNTDOWN"
	StateInProgress RoomState = "IN_PROGRESS"
	StateFinished   RoomState = "FINISHED"
)

// JoinCodeLength is how many leading characters of the room id make up the
// shareable join code.
const JoinCodeLength = 6

type Player struct {
	Wallet      string
	DisplayName string
	IsHost      bool
	Ready       bool
	JoinedAt    time.Time

	// Hidden progress. Never serialized on any read path before the room
	// reaches FINISHED.
	Score            int
	CompletedRounds  map[int]bool
	LastSolutionHash string
	LastAcceptedAt   time.Time
}

// Room is one multiplayer session. All mutations to a room happen under its
// embedded mutex; operations on different rooms never block on each other.
type Room struct {
	sync.RWMutex

	ID          string
	JoinCode    string
	HostWallet  string
	MaxPlayers  int
	TotalRounds int
	Players     []*Player
	State       RoomState

	// CountdownStart doubles as the generation token for the deferred
	// COUNTDOWN -> IN_PROGRESS transition.
	CountdownStart *time.Time

	// 0 until the game starts, then 1..TotalRounds.
	CurrentRound int

	CreatedAt time.Time

	// Populated exactly once, when the room finishes.
	Leaderboard []LeaderboardEntry
}

type LeaderboardEntry struct {
	Wallet      string  `json:"wallet"`
	DisplayName string  `json:"display_name"`
	Score       int     `json:"score"`
	Accuracy    float64 `json:"accuracy"`
	Rank        int     `json:"rank"`
}

// PlayerView is the redacted per-player shape exposed before FINISHED.
type PlayerView struct {
	Wallet      string    `json:"wallet"`
	DisplayName string    `json:"display_name"`
	IsHost      bool      `json:"is_host"`
	Ready       bool      `json:"ready"`
	JoinedAt    time.Time `json:"joined_at"`
}

type RoomView struct {
	ID             string       `json:"room_id"`
	JoinCode       string       `json:"join_code"`
	HostWallet     string       `json:"host_wallet"`
	MaxPlayers     int          `json:"max_players"`
	TotalRounds    int          `json:"total_rounds"`
	State          RoomState    `json:"state"`
	CurrentRound   int          `json:"current_round"`
	CountdownStart *time.Time   `json:"countdown_start,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	Players        []PlayerView `json:"players"`
}

// RoomSummary is the public listing shape; the host wallet is truncated.
type RoomSummary struct {
	ID          string    `json:"room_id"`
	JoinCode    string    `json:"join_code"`
	Host        string    `json:"host"`
	PlayerCount int       `json:"player_count"`
	MaxPlayers  int       `json:"max_players"`
	TotalRounds int       `json:"total_rounds"`
	CreatedAt   time.Time `json:"created_at"`
}

// TruncateWallet shortens a wallet identifier for display, keeping only a
// recognizable prefix.
func TruncateWallet(wallet string) string {
	if len(wallet) <= 8 {
		return wallet
	}
	return wallet[:8] + "..."
}
