package handlers

import (
	"net/http"

	"zktrials/pkg/common/request"
	"zktrials/pkg/common/response"

	"github.com/go-chi/chi/v5"
)

type StartGameRequest struct {
	HostWallet string `json:"host_wallet"`
}

type StartGameResponse struct {
	CountdownEndsAt int64 `json:"countdown_ends_at"`
}

func (hr *HandlerRepo) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req StartGameRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.JSON(w, http.StatusBadRequest, nil, true, err.Error())
		return
	}
	if req.HostWallet == "" {
		response.JSON(w, http.StatusBadRequest, nil, true, "host_wallet is required")
		return
	}

	endsAt, err := hr.coord.StartGame(roomID, req.HostWallet)
	if err != nil {
		hr.fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, StartGameResponse{
		CountdownEndsAt: endsAt.UnixMilli(),
	}, false, "countdown started")
}

func (hr *HandlerRepo) RoundStatusHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	status, err := hr.coord.RoundStatus(roomID)
	if err != nil {
		hr.fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, status, false, "get round status successfully")
}

func (hr *HandlerRepo) FinalResultsHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	results, err := hr.coord.FinalResults(roomID)
	if err != nil {
		hr.fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, results, false, "get final results successfully")
}
