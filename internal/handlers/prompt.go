package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"chadgpt-backend/internal/middleware"
	"chadgpt-backend/internal/models"
	"chadgpt-backend/internal/services"
)

type completionStreamer interface {
	StreamCompletion(ctx context.Context, model string, outbound []models.OutboundMessage) (services.TokenStream, error)
}

type chatOwnershipStore interface {
	GetByOwner(ctx context.Context, userEmail string, id uuid.UUID) (*models.Chat, error)
}

type messageAppender interface {
	Append(ctx context.Context, m *models.Message) error
}

// PromptHandler relays a streaming completion to the caller and persists the
// accumulated assistant message once the relay finishes.
type PromptHandler struct {
	chats      chatOwnershipStore
	messages   messageAppender
	completion completionStreamer
	redis      *redis.Client
}

func NewPromptHandler(chats chatOwnershipStore, messages messageAppender, completion completionStreamer, redisClient *redis.Client) *PromptHandler {
	return &PromptHandler{
		chats:      chats,
		messages:   messages,
		completion: completion,
		redis:      redisClient,
	}
}

var validRoles = map[string]bool{"system": true, "user": true, "assistant": true}

func (h *PromptHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.Email == "" {
		writeJSON(w, http.StatusUnauthorized, errorResp("Authentication required."))
		return
	}

	var req models.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body."))
		return
	}

	if len(req.OutboundMessages) == 0 || req.ID == "" || req.Model == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body. Missing required fields: outboundMessages, id, or model."))
		return
	}

	for _, m := range req.OutboundMessages {
		if !validRoles[m.Role] || m.Content == "" {
			writeJSON(w, http.StatusBadRequest, errorResp("outboundMessages must be an array of role/content pairs."))
			return
		}
	}

	chatID, err := uuid.Parse(req.ID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Valid chat ID is required."))
		return
	}

	// Ownership gate before any upstream call. Absent and not-owned are
	// deliberately indistinguishable.
	if _, err := h.chats.GetByOwner(r.Context(), identity.Email, chatID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("Chat not found or access denied."))
		} else {
			log.Printf("chat lookup failed: chat=%s user=%s err=%v", chatID, identity.Email, err)
			writeJSON(w, http.StatusInternalServerError, errorResp("Failed to process chat request."))
		}
		return
	}

	system := services.BuildSystemPrompt(services.PromptContext{
		Timezone: req.Timezone,
		City:     r.Header.Get("X-Vercel-IP-City"),
		Country:  r.Header.Get("X-Vercel-IP-Country"),
	})
	outbound := append([]models.OutboundMessage{{Role: "system", Content: system}}, req.OutboundMessages...)

	stream, err := h.completion.StreamCompletion(r.Context(), req.Model, outbound)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	// Every early return below abandons the stream; Close frees its rate
	// slot regardless of how far the relay got.
	defer stream.Close()

	// Pull the first fragment before committing to a streamed response so an
	// immediate upstream failure still gets a JSON error status.
	first, err := stream.Next()
	if err != nil && err != io.EOF {
		handleServiceError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResp("Streaming is not supported by this server."))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)

	// The accumulator mirrors exactly what is flushed to the client; the
	// persisted text is always the concatenation of the forwarded chunks.
	var full strings.Builder
	chunk, streamErr := first, err

	for streamErr == nil {
		if werr := writeChunk(w, chunk); werr != nil {
			// Client went away mid-stream: stop relaying, persist nothing.
			log.Printf("prompt stream aborted by client: chat=%s user=%s err=%v", chatID, identity.Email, werr)
			return
		}
		flusher.Flush()
		full.WriteString(chunk)

		chunk, streamErr = stream.Next()
	}

	if streamErr != io.EOF {
		// Mid-stream upstream failure: terminate the body without the done
		// sentinel so the client can tell it apart from a clean close.
		log.Printf("upstream stream failed mid-relay: chat=%s user=%s err=%v", chatID, identity.Email, streamErr)
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	// Persist after the last chunk was forwarded. Detached from the request
	// context so a client that hangs up right after [DONE] cannot cancel it.
	persistCtx := context.WithoutCancel(r.Context())
	message := &models.Message{
		ChatID: chatID,
		Text:   full.String(),
		Author: models.AssistantAuthor,
	}
	if err := h.messages.Append(persistCtx, message); err != nil {
		log.Printf("failed to persist assistant message: chat=%s user=%s err=%v", chatID, identity.Email, err)
		return
	}

	publishMessageCreated(persistCtx, h.redis, identity.Email, message)
}

func writeChunk(w io.Writer, content string) error {
	data, err := json.Marshal(models.StreamChunk{Content: content})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
