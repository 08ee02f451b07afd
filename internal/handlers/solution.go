package handlers

import (
	"net/http"

	"zktrials/internal/pipeline"
	"zktrials/pkg/common/request"
	"zktrials/pkg/common/response"
)

type SubmitProofRequest struct {
	RoomID       string `json:"room_id"`
	PlayerWallet string `json:"player_wallet"`
	RoundID      int    `json:"round_id"`
	Solution     string `json:"solution"`
}

type SubmitProofResponse struct {
	RoundComplete    bool                 `json:"round_complete"`
	AlreadySubmitted bool                 `json:"already_submitted,omitempty"`
	Attestation      pipeline.Attestation `json:"attestation"`
}

func (hr *HandlerRepo) SubmitProofHandler(w http.ResponseWriter, r *http.Request) {
	var req SubmitProofRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.JSON(w, http.StatusBadRequest, nil, true, err.Error())
		return
	}

	result, err := hr.pipeline.Submit(r.Context(), pipeline.Request{
		RoomID:   req.RoomID,
		Wallet:   req.PlayerWallet,
		RoundID:  req.RoundID,
		Solution: req.Solution,
	})
	if err != nil {
		hr.fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, SubmitProofResponse{
		RoundComplete:    result.RoundComplete,
		AlreadySubmitted: result.AlreadySubmitted,
		Attestation:      result.Attestation,
	}, false, "submission accepted")
}
