package game

import (
	"log/slog"
	"sort"
	"time"

	"zktrials/internal/events"
	"zktrials/internal/store"
)

// DefaultCountdown is how long the lobby countdown runs before play begins.
const DefaultCountdown = 15000 * time.Millisecond

// Notifier receives room events for fanout to connected clients. A nil
// notifier is valid and drops everything.
type Notifier interface {
	RoomEvent(roomID string, ev events.SseEvent)
}

// Coordinator owns the room lifecycle state machine and the shared round
// barrier: a room's round advances only once every seated player has an
// accepted submission for it.
type Coordinator struct {
	registry  *store.Registry
	notifier  Notifier
	logger    *slog.Logger
	countdown time.Duration
}

func NewCoordinator(registry *store.Registry, notifier Notifier, logger *slog.Logger, countdown time.Duration) *Coordinator {
	if countdown <= 0 {
		countdown = DefaultCountdown
	}
	return &Coordinator{
		registry:  registry,
		notifier:  notifier,
		logger:    logger,
		countdown: countdown,
	}
}

func (c *Coordinator) notify(roomID string, ev events.SseEvent) {
	if c.notifier != nil {
		c.notifier.RoomEvent(roomID, ev)
	}
}

// StartGame moves a WAITING room into COUNTDOWN and schedules the deferred
// transition into IN_PROGRESS. Only the host may start, and only with at
// least two seated players. Returns the instant the countdown ends.
func (c *Coordinator) StartGame(roomID, requesterWallet string) (time.Time, error) {
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		return time.Time{}, store.ErrRoomNotFound
	}

	room.Lock()
	if requesterWallet != room.HostWallet {
		room.Unlock()
		return time.Time{}, store.ErrForbidden
	}
	if room.State != store.StateWaiting {
		room.Unlock()
		return time.Time{}, store.ErrInvalidState
	}
	if len(room.Players) < 2 {
		room.Unlock()
		return time.Time{}, store.ErrInsufficientPlayers
	}

	now := time.Now()
	room.State = store.StateCountdown
	room.CountdownStart = &now
	room.Unlock()

	endsAt := now.Add(c.countdown)

	// The countdown start instant is the generation token: when the timer
	// fires, beginGame re-reads the room and no-ops unless the room is
	// still in the same COUNTDOWN it was scheduled against.
	time.AfterFunc(c.countdown, func() {
		c.beginGame(roomID, now)
	})

	c.logger.Info("countdown started", "room_id", roomID, "ends_at", endsAt)
	c.notify(roomID, events.SseEvent{
		EventType: events.COUNTDOWN_STARTED,
		Data:      events.CountdownStarted{RoomID: roomID, EndsAt: endsAt},
	})

	return endsAt, nil
}

// beginGame is the deferred COUNTDOWN -> IN_PROGRESS transition. It is safe
// to invoke any number of times: a deleted room, a room no longer in
// COUNTDOWN, or a countdown other than the scheduled one all make it a no-op.
func (c *Coordinator) beginGame(roomID string, scheduledAt time.Time) {
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		return
	}

	room.Lock()
	if room.State != store.StateCountdown || room.CountdownStart == nil || !room.CountdownStart.Equal(scheduledAt) {
		room.Unlock()
		return
	}
	room.State = store.StateInProgress
	room.CurrentRound = 1
	room.Unlock()

	c.logger.Info("game started", "room_id", roomID)
	c.notify(roomID, events.SseEvent{
		EventType: events.GAME_STARTED,
		Data:      events.GameStarted{RoomID: roomID, CurrentRound: 1},
	})
}

// SubmissionOutcome reports what recording one accepted submission did to
// the room.
type SubmissionOutcome struct {
	AlreadySubmitted bool
	RoundComplete    bool
	Finished         bool
	CurrentRound     int
}

// RecordAcceptedSubmission scores one validated, proof-checked submission.
// Resubmitting a round the player already completed is an idempotent no-op.
// A submission for any round other than the room's current one is rejected:
// the room advances as a single barrier, never per player.
func (c *Coordinator) RecordAcceptedSubmission(roomID, playerWallet string, roundID int, solutionHash string) (SubmissionOutcome, error) {
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		return SubmissionOutcome{}, store.ErrRoomNotFound
	}

	room.Lock()

	if room.State != store.StateInProgress {
		room.Unlock()
		return SubmissionOutcome{}, store.ErrInvalidState
	}

	player := room.FindPlayerLocked(playerWallet)
	if player == nil {
		room.Unlock()
		return SubmissionOutcome{}, store.ErrNotInRoom
	}

	if player.CompletedRounds[roundID] {
		out := SubmissionOutcome{AlreadySubmitted: true, CurrentRound: room.CurrentRound}
		room.Unlock()
		return out, nil
	}

	if roundID != room.CurrentRound {
		room.Unlock()
		return SubmissionOutcome{}, store.ErrRoundMismatch
	}

	player.Score++
	player.CompletedRounds[roundID] = true
	player.LastSolutionHash = solutionHash
	player.LastAcceptedAt = time.Now()

	allSubmitted := true
	for _, p := range room.Players {
		if !p.CompletedRounds[room.CurrentRound] {
			allSubmitted = false
			break
		}
	}

	out := SubmissionOutcome{RoundComplete: allSubmitted}
	var emit []events.SseEvent

	if allSubmitted {
		if room.CurrentRound >= room.TotalRounds {
			c.finishGameLocked(room)
			out.Finished = true
			emit = append(emit, events.SseEvent{
				EventType: events.GAME_FINISHED,
				Data:      events.GameFinished{RoomID: roomID},
			})
		} else {
			room.CurrentRound++
			emit = append(emit, events.SseEvent{
				EventType: events.ROUND_ADVANCED,
				Data:      events.RoundAdvanced{RoomID: roomID, CurrentRound: room.CurrentRound},
			})
		}
	}
	out.CurrentRound = room.CurrentRound
	room.Unlock()

	for _, ev := range emit {
		c.notify(roomID, ev)
	}
	return out, nil
}

// finishGameLocked snapshots the hidden leaderboard and seals the room.
// Callers must hold the room lock.
func (c *Coordinator) finishGameLocked(room *store.Room) {
	room.State = store.StateFinished

	players := append([]*store.Player(nil), room.Players...)

	// Score descending; ties go to whoever finished their last accepted
	// round earlier, then to join order (the sort is stable).
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].LastAcceptedAt.Before(players[j].LastAcceptedAt)
	})

	leaderboard := make([]store.LeaderboardEntry, len(players))
	for i, p := range players {
		leaderboard[i] = store.LeaderboardEntry{
			Wallet:      p.Wallet,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Accuracy:    float64(p.Score) / float64(room.TotalRounds) * 100,
			Rank:        i + 1,
		}
	}
	room.Leaderboard = leaderboard

	c.logger.Info("game finished", "room_id", room.ID, "players", len(players))
}

type RoundStatus struct {
	CurrentRound   int  `json:"current_round"`
	TotalPlayers   int  `json:"total_players"`
	SubmittedCount int  `json:"submitted_count"`
	AllSubmitted   bool `json:"all_submitted"`
}

// RoundStatus reports aggregate progress for the current round without
// revealing which players have submitted.
func (c *Coordinator) RoundStatus(roomID string) (RoundStatus, error) {
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		return RoundStatus{}, store.ErrRoomNotFound
	}

	room.RLock()
	defer room.RUnlock()

	status := RoundStatus{
		CurrentRound: room.CurrentRound,
		TotalPlayers: len(room.Players),
	}
	// Before the first round starts there is nothing to count. Once the
	// room is FINISHED, CurrentRound stays on the last round, so the counts
	// below report that round as fully submitted.
	if room.CurrentRound < 1 {
		return status, nil
	}
	for _, p := range room.Players {
		if p.CompletedRounds[room.CurrentRound] {
			status.SubmittedCount++
		}
	}
	status.AllSubmitted = status.SubmittedCount == status.TotalPlayers && status.TotalPlayers > 0
	return status, nil
}

type FinalResults struct {
	Winner      *store.LeaderboardEntry  `json:"winner"`
	Leaderboard []store.LeaderboardEntry `json:"leaderboard"`
	TotalRounds int                      `json:"total_rounds"`
}

// FinalResults returns the leaderboard snapshot taken at finish. Before the
// room is FINISHED this fails; scores stay hidden until then.
func (c *Coordinator) FinalResults(roomID string) (FinalResults, error) {
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		return FinalResults{}, store.ErrRoomNotFound
	}

	room.RLock()
	defer room.RUnlock()

	if room.State != store.StateFinished {
		return FinalResults{}, store.ErrInvalidState
	}

	results := FinalResults{
		Leaderboard: room.Leaderboard,
		TotalRounds: room.TotalRounds,
	}
	if len(room.Leaderboard) > 0 {
		winner := room.Leaderboard[0]
		results.Winner = &winner
	}
	return results, nil
}
