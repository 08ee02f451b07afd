package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zktrials/internal/attest"
	"zktrials/internal/channels"
	"zktrials/internal/game"
	"zktrials/internal/pipeline"
	"zktrials/internal/proof"
	"zktrials/internal/store"
	"zktrials/internal/trials"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAnswers = map[int]string{
	1: "alpha",
	2: "beta",
	3: "gamma",
}

type testApp struct {
	registry *store.Registry
	gr       *channels.GlobalRooms
	mux      http.Handler
}

func newTestApp(t *testing.T, countdown time.Duration) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := store.NewRegistry(logger)
	gr := channels.NewGlobalRooms(logger)
	registry.SetEvictHook(gr.Remove)
	coord := game.NewCoordinator(registry, gr, logger, countdown)

	prover, err := proof.NewLocalProver()
	require.NoError(t, err)
	signer, err := attest.NewSchnorrSigner("")
	require.NoError(t, err)

	pl := pipeline.New(coord, trials.NewStaticKey(testAnswers), prover, attest.NewCounterIssuer(), signer, nil, logger)
	hr := NewHandlerRepo(logger, registry, coord, pl, gr)

	mux := chi.NewRouter()
	mux.Get("/healthz", hr.HealthHandler)
	mux.Route("/events", func(r chi.Router) {
		r.Get("/", hr.EventHandler)
	})
	mux.Route("/submission", func(r chi.Router) {
		r.Post("/", hr.SubmitProofHandler)
	})
	mux.Route("/rooms", func(r chi.Router) {
		r.Get("/", hr.ListRoomsHandler)
		r.Post("/", hr.CreateRoomHandler)
		r.Get("/{roomId}", hr.GetRoomStateHandler)
		r.Delete("/{roomId}", hr.DeleteRoomHandler)
		r.Post("/{roomId}/join", hr.JoinRoomHandler)
		r.Post("/{roomId}/start", hr.StartGameHandler)
		r.Get("/{roomId}/round", hr.RoundStatusHandler)
		r.Get("/{roomId}/results", hr.FinalResultsHandler)
	})

	return &testApp{registry: registry, gr: gr, mux: mux}
}

type envelope struct {
	Error   bool            `json:"error"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (a *testApp) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func (a *testApp) createRoom(t *testing.T, host string, maxPlayers, totalRounds int) CreateRoomResponse {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/rooms", CreateRoomRequest{
		HostWallet:  host,
		MaxPlayers:  maxPlayers,
		TotalRounds: totalRounds,
	})
	require.Equal(t, http.StatusCreated, code)

	var res CreateRoomResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestCreateRoomRequiresHostWallet(t *testing.T) {
	app := newTestApp(t, time.Hour)

	code, env := app.do(t, http.MethodPost, "/rooms", CreateRoomRequest{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, env.Error)
}

func TestCreateAndGetRoom(t *testing.T) {
	app := newTestApp(t, time.Hour)

	res := app.createRoom(t, "0xhostwallet", 4, 3)
	assert.Len(t, res.JoinCode, store.JoinCodeLength)
	assert.Equal(t, res.RoomID[:store.JoinCodeLength], res.JoinCode)

	code, env := app.do(t, http.MethodGet, "/rooms/"+res.RoomID, nil)
	require.Equal(t, http.StatusOK, code)

	var view store.RoomView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, store.StateWaiting, view.State)
	require.Len(t, view.Players, 1)
	assert.True(t, view.Players[0].IsHost)

	// Hidden progress must not appear anywhere in the payload.
	assert.NotContains(t, string(env.Data), "score")
	assert.NotContains(t, string(env.Data), "completed")

	code, _ = app.do(t, http.MethodGet, "/rooms/no-such-room", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestJoinRoomFlow(t *testing.T) {
	app := newTestApp(t, time.Hour)
	res := app.createRoom(t, "0xhost", 2, 3)

	code, env := app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/join", JoinRoomRequest{PlayerWallet: "0xalice"})
	require.Equal(t, http.StatusOK, code)
	var join JoinRoomResponse
	require.NoError(t, json.Unmarshal(env.Data, &join))
	assert.Equal(t, 2, join.PlayerCount)

	// Idempotent rejoin.
	code, env = app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/join", JoinRoomRequest{PlayerWallet: "0xalice"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "already in room", env.Message)

	// The room is now full for anyone else.
	code, _ = app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/join", JoinRoomRequest{PlayerWallet: "0xbob"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = app.do(t, http.MethodPost, "/rooms/no-such-room/join", JoinRoomRequest{PlayerWallet: "0xbob"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListRoomsOnlyShowsJoinable(t *testing.T) {
	app := newTestApp(t, time.Hour)
	open := app.createRoom(t, "0xhost1", 4, 3)
	full := app.createRoom(t, "0xhost2", 1, 3)

	code, env := app.do(t, http.MethodGet, "/rooms", nil)
	require.Equal(t, http.StatusOK, code)

	var summaries []store.RoomSummary
	require.NoError(t, json.Unmarshal(env.Data, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, open.RoomID, summaries[0].ID)
	assert.NotEqual(t, full.RoomID, summaries[0].ID)
}

func TestStartGameErrors(t *testing.T) {
	app := newTestApp(t, time.Hour)
	res := app.createRoom(t, "0xhost", 4, 3)

	// Too few players.
	code, _ := app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/start", StartGameRequest{HostWallet: "0xhost"})
	assert.Equal(t, http.StatusBadRequest, code)

	app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/join", JoinRoomRequest{PlayerWallet: "0xalice"})

	// Non-host.
	code, _ = app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/start", StartGameRequest{HostWallet: "0xalice"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = app.do(t, http.MethodPost, "/rooms/no-such-room/start", StartGameRequest{HostWallet: "0xhost"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSubmitProofRejectsWrongAnswer(t *testing.T) {
	app := newTestApp(t, time.Hour)
	res := app.createRoom(t, "0xhost", 4, 3)
	app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/join", JoinRoomRequest{PlayerWallet: "0xalice"})

	room, ok := app.registry.GetRoom(res.RoomID)
	require.True(t, ok)
	room.Lock()
	room.State = store.StateInProgress
	room.CurrentRound = 1
	room.Unlock()

	code, env := app.do(t, http.MethodPost, "/submission", SubmitProofRequest{
		RoomID: res.RoomID, PlayerWallet: "0xhost", RoundID: 1, Solution: "not it",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, env.Error)
}

func TestDeleteRoomIsIdempotent(t *testing.T) {
	app := newTestApp(t, time.Hour)
	res := app.createRoom(t, "0xhost", 4, 3)

	code, _ := app.do(t, http.MethodDelete, "/rooms/"+res.RoomID, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = app.do(t, http.MethodDelete, "/rooms/"+res.RoomID, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = app.do(t, http.MethodGet, "/rooms/"+res.RoomID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

// When the janitor evicts a stale WAITING room, the room's broadcaster must
// go with it, not linger with a running event loop.
func TestJanitorTearsDownRoomManager(t *testing.T) {
	app := newTestApp(t, time.Hour)
	res := app.createRoom(t, "0xhost", 4, 3)
	require.NotNil(t, app.gr.GetRoomByID(res.RoomID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.registry.StartJanitor(ctx, time.Millisecond, time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := app.registry.GetRoom(res.RoomID)
		return !ok && app.gr.GetRoomByID(res.RoomID) == nil
	}, time.Second, 5*time.Millisecond)
}

// TestEndToEndSession drives a full two-player, two-round session through
// the HTTP surface.
func TestEndToEndSession(t *testing.T) {
	app := newTestApp(t, 20*time.Millisecond)

	res := app.createRoom(t, "0xhost", 4, 2)
	app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/join", JoinRoomRequest{PlayerWallet: "0xalice"})

	before := time.Now()
	code, env := app.do(t, http.MethodPost, "/rooms/"+res.RoomID+"/start", StartGameRequest{HostWallet: "0xhost"})
	require.Equal(t, http.StatusOK, code)

	var start StartGameResponse
	require.NoError(t, json.Unmarshal(env.Data, &start))
	assert.GreaterOrEqual(t, start.CountdownEndsAt, before.UnixMilli())

	room, ok := app.registry.GetRoom(res.RoomID)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		room.RLock()
		defer room.RUnlock()
		return room.State == store.StateInProgress
	}, time.Second, 5*time.Millisecond)

	// Round 1.
	code, env = app.do(t, http.MethodPost, "/submission", SubmitProofRequest{
		RoomID: res.RoomID, PlayerWallet: "0xhost", RoundID: 1, Solution: testAnswers[1],
	})
	require.Equal(t, http.StatusOK, code)
	var sub SubmitProofResponse
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.False(t, sub.RoundComplete)
	assert.NotEmpty(t, sub.Attestation.Signature)

	code, env = app.do(t, http.MethodGet, "/rooms/"+res.RoomID+"/round", nil)
	require.Equal(t, http.StatusOK, code)
	var status game.RoundStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 1, status.SubmittedCount)
	assert.Equal(t, 2, status.TotalPlayers)

	// Results are still hidden mid-game.
	code, _ = app.do(t, http.MethodGet, "/rooms/"+res.RoomID+"/results", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = app.do(t, http.MethodPost, "/submission", SubmitProofRequest{
		RoomID: res.RoomID, PlayerWallet: "0xalice", RoundID: 1, Solution: testAnswers[1],
	})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.True(t, sub.RoundComplete)

	// Round 2 finishes the game.
	app.do(t, http.MethodPost, "/submission", SubmitProofRequest{
		RoomID: res.RoomID, PlayerWallet: "0xhost", RoundID: 2, Solution: testAnswers[2],
	})
	app.do(t, http.MethodPost, "/submission", SubmitProofRequest{
		RoomID: res.RoomID, PlayerWallet: "0xalice", RoundID: 2, Solution: testAnswers[2],
	})

	code, env = app.do(t, http.MethodGet, "/rooms/"+res.RoomID+"/results", nil)
	require.Equal(t, http.StatusOK, code)

	var results game.FinalResults
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results.Leaderboard, 2)
	assert.Equal(t, 1, results.Leaderboard[0].Rank)
	assert.Equal(t, 2, results.Leaderboard[1].Rank)
	assert.Equal(t, 2, results.TotalRounds)
	require.NotNil(t, results.Winner)
	assert.Equal(t, "0xhost", results.Winner.Wallet)
}
