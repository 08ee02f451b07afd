package response

import (
	"encoding/json"
	"net/http"
)

// JsonResponse is the envelope every endpoint answers with.
type JsonResponse struct {
	Error   bool   `json:"error"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, data any, isErr bool, msg string) error {
	response := &JsonResponse{
		Error:   isErr,
		Message: msg,
	}
	if !isErr {
		response.Data = data
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		return err
	}

	return nil
}
