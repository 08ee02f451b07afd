package handlers

import (
	"net/http"

	"zktrials/internal/events"
	"zktrials/internal/store"
	"zktrials/pkg/common/request"
	"zktrials/pkg/common/response"

	"github.com/go-chi/chi/v5"
)

const (
	defaultMaxPlayers  = 4
	defaultTotalRounds = 3
)

func (hr *HandlerRepo) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms := hr.registry.ListPublicRooms()
	response.JSON(w, http.StatusOK, rooms, false, "get rooms successfully")
}

type CreateRoomRequest struct {
	HostWallet  string `json:"host_wallet"`
	MaxPlayers  int    `json:"max_players,omitempty"`
	TotalRounds int    `json:"total_rounds,omitempty"`
}

type CreateRoomResponse struct {
	RoomID   string `json:"room_id"`
	JoinCode string `json:"join_code"`
}

func (hr *HandlerRepo) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.JSON(w, http.StatusBadRequest, nil, true, err.Error())
		return
	}

	if req.HostWallet == "" {
		response.JSON(w, http.StatusBadRequest, nil, true, "host_wallet is required")
		return
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = defaultMaxPlayers
	}
	if req.TotalRounds == 0 {
		req.TotalRounds = defaultTotalRounds
	}

	room, err := hr.registry.CreateRoom(req.HostWallet, req.MaxPlayers, req.TotalRounds)
	if err != nil {
		response.JSON(w, http.StatusBadRequest, nil, true, err.Error())
		return
	}

	hr.gr.CreateRoom(room.ID)

	response.JSON(w, http.StatusCreated, CreateRoomResponse{
		RoomID:   room.ID,
		JoinCode: room.JoinCode,
	}, false, "create room successfully")
}

type JoinRoomRequest struct {
	PlayerWallet string `json:"player_wallet"`
}

type JoinRoomResponse struct {
	PlayerCount   int  `json:"player_count"`
	AlreadyJoined bool `json:"already_joined,omitempty"`
}

func (hr *HandlerRepo) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req JoinRoomRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.JSON(w, http.StatusBadRequest, nil, true, err.Error())
		return
	}
	if req.PlayerWallet == "" {
		response.JSON(w, http.StatusBadRequest, nil, true, "player_wallet is required")
		return
	}

	count, already, err := hr.registry.JoinRoom(roomID, req.PlayerWallet)
	if err != nil {
		hr.fail(w, err)
		return
	}

	msg := "joined room"
	if already {
		msg = "already in room"
	} else {
		hr.gr.RoomEvent(roomID, events.SseEvent{
			EventType: events.PLAYER_JOINED,
			Data: events.PlayerJoined{
				RoomID:      roomID,
				Player:      store.TruncateWallet(req.PlayerWallet),
				PlayerCount: count,
			},
		})
	}

	response.JSON(w, http.StatusOK, JoinRoomResponse{PlayerCount: count, AlreadyJoined: already}, false, msg)
}

func (hr *HandlerRepo) GetRoomStateHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	view, err := hr.registry.RoomStateView(roomID)
	if err != nil {
		hr.fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, view, false, "get room state successfully")
}

func (hr *HandlerRepo) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	hr.registry.DeleteRoom(roomID)
	hr.gr.Remove(roomID)

	response.JSON(w, http.StatusOK, nil, false, "delete room successfully")
}
