package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns every live room, keyed by room id. The registry lock only
// guards the map itself; room contents are guarded by each room's own mutex.
type Registry struct {
	roomsMu sync.RWMutex
	rooms   map[string]*Room

	// evictHook runs after the janitor removes a room, so per-room
	// resources living outside the registry get torn down with it.
	evictHook func(roomID string)

	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// CreateRoom opens a new WAITING room with the host seated as the first,
// already-ready player.
func (s *Registry) CreateRoom(hostWallet string, maxPlayers, totalRounds int) (*Room, error) {
	if hostWallet == "" {
		return nil, fmt.Errorf("host wallet is required")
	}
	if maxPlayers < 1 || totalRounds < 1 {
		return nil, fmt.Errorf("max players and total rounds must be positive")
	}

	id := uuid.NewString()
	now := time.Now()

	room := &Room{
		ID:          id,
		JoinCode:    id[:JoinCodeLength],
		HostWallet:  hostWallet,
		MaxPlayers:  maxPlayers,
		TotalRounds: totalRounds,
		State:       StateWaiting,
		CreatedAt:   now,
		Players: []*Player{{
			Wallet:          hostWallet,
			DisplayName:     TruncateWallet(hostWallet),
			IsHost:          true,
			Ready:           true,
			JoinedAt:        now,
			CompletedRounds: make(map[int]bool),
		}},
	}

	s.roomsMu.Lock()
	s.rooms[id] = room
	s.roomsMu.Unlock()

	s.logger.Info("room created", "room_id", id, "join_code", room.JoinCode, "host", TruncateWallet(hostWallet))
	return room, nil
}

func (s *Registry) GetRoom(roomID string) (*Room, bool) {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

// DeleteRoom removes a room unconditionally. Deleting an absent room is not
// an error.
func (s *Registry) DeleteRoom(roomID string) bool {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	if _, exists := s.rooms[roomID]; exists {
		delete(s.rooms, roomID)
		return true
	}
	return false
}

func (s *Registry) RoomCount() int {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	return len(s.rooms)
}

// JoinRoom seats a wallet in a WAITING room. Re-joining with a wallet that
// is already seated succeeds without duplicating the player; the second
// return value reports whether the wallet was already there.
func (s *Registry) JoinRoom(roomID, playerWallet string) (int, bool, error) {
	room, ok := s.GetRoom(roomID)
	if !ok {
		return 0, false, ErrRoomNotFound
	}

	room.Lock()
	defer room.Unlock()

	for _, p := range room.Players {
		if p.Wallet == playerWallet {
			return len(room.Players), true, nil
		}
	}

	if room.State != StateWaiting {
		return 0, false, ErrInvalidState
	}
	if len(room.Players) >= room.MaxPlayers {
		return 0, false, ErrRoomFull
	}

	room.Players = append(room.Players, &Player{
		Wallet:          playerWallet,
		DisplayName:     TruncateWallet(playerWallet),
		Ready:           true,
		JoinedAt:        time.Now(),
		CompletedRounds: make(map[int]bool),
	})

	s.logger.Info("player joined", "room_id", roomID, "player", TruncateWallet(playerWallet), "player_count", len(room.Players))
	return len(room.Players), false, nil
}

// RoomStateView returns the redacted view of a room. Per-player scores and
// completed-round sets are never part of it, in any state.
func (s *Registry) RoomStateView(roomID string) (RoomView, error) {
	room, ok := s.GetRoom(roomID)
	if !ok {
		return RoomView{}, ErrRoomNotFound
	}
	return room.View(), nil
}

// ListPublicRooms returns joinable rooms only: WAITING and not full.
func (s *Registry) ListPublicRooms() []RoomSummary {
	s.roomsMu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.roomsMu.RUnlock()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.RLock()
		if room.State == StateWaiting && len(room.Players) < room.MaxPlayers {
			summaries = append(summaries, room.summaryLocked())
		}
		room.RUnlock()
	}
	return summaries
}

// SetEvictHook registers a callback invoked with the room id after the
// janitor evicts a room. Set it before StartJanitor; it is not safe to
// change once the janitor is running.
func (s *Registry) SetEvictHook(hook func(roomID string)) {
	s.evictHook = hook
}

// StartJanitor evicts WAITING rooms older than ttl until ctx is done. Rooms
// that have left WAITING are never evicted here; finished rooms stay until
// the administrative delete.
func (s *Registry) StartJanitor(ctx context.Context, ttl, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictStale(ttl)
			}
		}
	}()
}

func (s *Registry) evictStale(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	s.roomsMu.RLock()
	var stale []string
	for id, room := range s.rooms {
		room.RLock()
		if room.State == StateWaiting && room.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
		room.RUnlock()
	}
	s.roomsMu.RUnlock()

	for _, id := range stale {
		if s.deleteIfStaleWaiting(id, cutoff) {
			s.logger.Info("evicted stale waiting room", "room_id", id)
			if s.evictHook != nil {
				s.evictHook(id)
			}
		}
	}
}

// deleteIfStaleWaiting removes the room only if it is still a stale WAITING
// room, checked under the room lock while the registry write lock is held so
// a room entering COUNTDOWN cannot slip through between check and delete.
func (s *Registry) deleteIfStaleWaiting(id string, cutoff time.Time) bool {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return false
	}
	room.RLock()
	stale := room.State == StateWaiting && room.CreatedAt.Before(cutoff)
	room.RUnlock()
	if !stale {
		return false
	}
	delete(s.rooms, id)
	return true
}

// View snapshots the redacted room state under the room's read lock.
func (r *Room) View() RoomView {
	r.RLock()
	defer r.RUnlock()

	players := make([]PlayerView, len(r.Players))
	for i, p := range r.Players {
		players[i] = PlayerView{
			Wallet:      p.Wallet,
			DisplayName: p.DisplayName,
			IsHost:      p.IsHost,
			Ready:       p.Ready,
			JoinedAt:    p.JoinedAt,
		}
	}

	return RoomView{
		ID:             r.ID,
		JoinCode:       r.JoinCode,
		HostWallet:     r.HostWallet,
		MaxPlayers:     r.MaxPlayers,
		TotalRounds:    r.TotalRounds,
		State:          r.State,
		CurrentRound:   r.CurrentRound,
		CountdownStart: r.CountdownStart,
		CreatedAt:      r.CreatedAt,
		Players:        players,
	}
}

func (r *Room) summaryLocked() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		JoinCode:    r.JoinCode,
		Host:        TruncateWallet(r.HostWallet),
		PlayerCount: len(r.Players),
		MaxPlayers:  r.MaxPlayers,
		TotalRounds: r.TotalRounds,
		CreatedAt:   r.CreatedAt,
	}
}

// FindPlayerLocked looks a wallet up in the roster. Callers must hold the
// room lock.
func (r *Room) FindPlayerLocked(wallet string) *Player {
	for _, p := range r.Players {
		if p.Wallet == wallet {
			return p
		}
	}
	return nil
}
