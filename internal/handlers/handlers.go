package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"zktrials/internal/channels"
	"zktrials/internal/game"
	"zktrials/internal/pipeline"
	"zktrials/internal/store"
	"zktrials/pkg/common/response"
)

// HandlerRepo holds all the dependencies required by the handlers.
type HandlerRepo struct {
	logger   *slog.Logger
	registry *store.Registry
	coord    *game.Coordinator
	pipeline *pipeline.Pipeline
	gr       *channels.GlobalRooms
}

func NewHandlerRepo(logger *slog.Logger, registry *store.Registry, coord *game.Coordinator, pl *pipeline.Pipeline, gr *channels.GlobalRooms) *HandlerRepo {
	return &HandlerRepo{
		logger:   logger,
		registry: registry,
		coord:    coord,
		pipeline: pl,
		gr:       gr,
	}
}

// fail maps taxonomy errors to HTTP statuses: absent room is 404, every
// other domain rejection is 400, anything unrecognized is 500.
func (hr *HandlerRepo) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrForbidden),
		errors.Is(err, store.ErrInvalidState),
		errors.Is(err, store.ErrRoomFull),
		errors.Is(err, store.ErrInsufficientPlayers),
		errors.Is(err, store.ErrNotInRoom),
		errors.Is(err, store.ErrRoundMismatch),
		errors.Is(err, pipeline.ErrValidation),
		errors.Is(err, pipeline.ErrIncorrectSolution),
		errors.Is(err, pipeline.ErrProofGeneration),
		errors.Is(err, pipeline.ErrProofVerification):
		status = http.StatusBadRequest
	default:
		hr.logger.Error("unexpected handler error", "error", err)
	}

	response.JSON(w, status, nil, true, err.Error())
}

func (hr *HandlerRepo) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{"rooms": hr.registry.RoomCount()}, false, "ok")
}
