package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"chadgpt-backend/internal/models"
	"chadgpt-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(message string) models.APIError {
	return models.APIError{Success: false, Error: message}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorResp(e.Message))
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp(e.Message))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp(e.Message))
	case *services.RateLimitError:
		writeJSON(w, http.StatusTooManyRequests, errorResp(e.Message))
	case *services.UpstreamError:
		log.Printf("upstream completion error: request=%s err=%s", r.Header.Get("X-Request-ID"), e.Message)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to process chat request."))
	default:
		log.Printf("unexpected error: request=%s err=%v", r.Header.Get("X-Request-ID"), err)
		writeJSON(w, http.StatusInternalServerError, errorResp("An unexpected error occurred."))
	}
}

// publishMessageCreated pushes a message_created event onto the owner's
// update channel so connected WebSocket clients refresh immediately.
func publishMessageCreated(ctx context.Context, rdb *redis.Client, userEmail string, m *models.Message) {
	if rdb == nil {
		return
	}
	data, err := json.Marshal(models.WSMessage{Type: "message_created", Payload: m})
	if err != nil {
		return
	}
	rdb.Publish(ctx, "chat_updates:"+userEmail, string(data))
}
