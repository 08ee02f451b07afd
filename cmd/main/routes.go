package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func (app *Application) routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(cors.AllowAll().Handler)

	mux.Get("/healthz", app.handlers.HealthHandler)

	mux.Route("/events", func(r chi.Router) {
		r.Get("/", app.handlers.EventHandler)
	})

	mux.Route("/submission", func(r chi.Router) {
		r.Post("/", app.handlers.SubmitProofHandler)
	})

	mux.Route("/rooms", func(r chi.Router) {
		r.Get("/", app.handlers.ListRoomsHandler)
		r.Post("/", app.handlers.CreateRoomHandler)

		r.Get("/{roomId}", app.handlers.GetRoomStateHandler)
		r.Delete("/{roomId}", app.handlers.DeleteRoomHandler)

		r.Post("/{roomId}/join", app.handlers.JoinRoomHandler)
		r.Post("/{roomId}/start", app.handlers.StartGameHandler)
		r.Get("/{roomId}/round", app.handlers.RoundStatusHandler)
		r.Get("/{roomId}/results", app.handlers.FinalResultsHandler)
	})

	return mux
}
