package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventHandler streams room events to a client over SSE. Every payload is
// public room data; hidden progress never travels this channel.
func (hr *HandlerRepo) EventHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	wallet := r.URL.Query().Get("wallet")
	if roomID == "" || wallet == "" {
		http.Error(w, "room_id and wallet are required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	roomManager := hr.gr.GetRoomByID(roomID)
	if roomManager == nil {
		http.Error(w, "room not found or not active", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	listen, cancel := roomManager.Subscribe()
	defer cancel()

	hr.logger.Info("SSE connection established", "room_id", roomID, "wallet", wallet)
	defer hr.logger.Info("SSE connection closed", "room_id", roomID, "wallet", wallet)

	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-listen:
			if !ok {
				return
			}

			data, err := json.Marshal(event.Data)
			if err != nil {
				hr.logger.Error("failed to marshal SSE event", "error", err, "room_id", roomID)
				return
			}

			fmt.Fprintf(w, "event: %s\n", event.EventType)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
