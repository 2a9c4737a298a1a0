package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"chadgpt-backend/internal/middleware"
	"chadgpt-backend/internal/models"
)

type chatStore interface {
	Create(ctx context.Context, userEmail string) (*models.Chat, bool, error)
	GetByOwner(ctx context.Context, userEmail string, id uuid.UUID) (*models.Chat, error)
	ListByUser(ctx context.Context, userEmail string) ([]*models.Chat, error)
	Delete(ctx context.Context, userEmail string, id uuid.UUID) error
	DeleteAllByUser(ctx context.Context, userEmail string) (int, error)
}

type messageStore interface {
	Append(ctx context.Context, m *models.Message) error
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error)
}

type ChatHandler struct {
	chats    chatStore
	messages messageStore
	redis    *redis.Client
}

func NewChatHandler(chats chatStore, messages messageStore, redisClient *redis.Client) *ChatHandler {
	return &ChatHandler{
		chats:    chats,
		messages: messages,
		redis:    redisClient,
	}
}

// Create starts a new conversation, reusing the caller's latest chat when it
// is still empty so empty chats do not pile up.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	chat, reused, err := h.chats.Create(r.Context(), identity.Email)
	if err != nil {
		log.Printf("chat creation failed: user=%s err=%v", identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to create chat."))
		return
	}

	if reused {
		writeJSON(w, http.StatusOK, models.ChatResponse{
			Success: true,
			ChatID:  chat.ID.String(),
			Message: "Returning existing empty chat.",
		})
		return
	}

	writeJSON(w, http.StatusCreated, models.ChatResponse{
		Success: true,
		ChatID:  chat.ID.String(),
		Message: "New chat created.",
	})
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	chats, err := h.chats.ListByUser(r.Context(), identity.Email)
	if err != nil {
		log.Printf("chat list failed: user=%s err=%v", identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to list chats."))
		return
	}
	if chats == nil {
		chats = []*models.Chat{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"chats":   chats,
	})
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	chatID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Valid chat ID is required."))
		return
	}

	if err := h.chats.Delete(r.Context(), identity.Email, chatID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("Chat not found or access denied."))
			return
		}
		log.Printf("chat deletion failed: chat=%s user=%s err=%v", chatID, identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to delete chat."))
		return
	}

	writeJSON(w, http.StatusOK, models.DeleteResponse{Success: true, Message: "Chat deleted."})
}

// DeleteAll removes every chat the caller owns. Zero chats is still success.
func (h *ChatHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	count, err := h.chats.DeleteAllByUser(r.Context(), identity.Email)
	if err != nil {
		log.Printf("bulk chat deletion failed: user=%s err=%v", identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to delete chats."))
		return
	}

	if count == 0 {
		writeJSON(w, http.StatusOK, models.DeleteResponse{
			Success: true,
			Message: "No chats found to delete.",
		})
		return
	}

	writeJSON(w, http.StatusOK, models.DeleteResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully deleted %d chats.", count),
	})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Valid chat ID is required."))
		return
	}

	if _, err := h.chats.GetByOwner(r.Context(), identity.Email, chatID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("Chat not found or access denied."))
			return
		}
		log.Printf("chat lookup failed: chat=%s user=%s err=%v", chatID, identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to load messages."))
		return
	}

	messages, err := h.messages.ListByChat(r.Context(), chatID)
	if err != nil {
		log.Printf("message list failed: chat=%s user=%s err=%v", chatID, identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to load messages."))
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": messages,
	})
}

// AppendMessage persists the caller's own utterance into their chat.
func (h *ChatHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Valid chat ID is required."))
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("Message text is required."))
		return
	}

	if _, err := h.chats.GetByOwner(r.Context(), identity.Email, chatID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("Chat not found or access denied."))
			return
		}
		log.Printf("chat lookup failed: chat=%s user=%s err=%v", chatID, identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to send message."))
		return
	}

	message := &models.Message{
		ChatID: chatID,
		Text:   req.Text,
		Author: models.MessageAuthor{
			ID:     identity.Email,
			Name:   identity.Name,
			Avatar: identity.Avatar,
		},
	}

	if err := h.messages.Append(r.Context(), message); err != nil {
		log.Printf("failed to persist user message: chat=%s user=%s err=%v", chatID, identity.Email, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to send message."))
		return
	}

	publishMessageCreated(r.Context(), h.redis, identity.Email, message)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": message,
	})
}
