package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chadgpt-backend/internal/middleware"
	"chadgpt-backend/internal/models"
)

type stubChatStore struct {
	chats          map[uuid.UUID]*models.Chat
	reuse          bool
	createCalls    int
	deleteAllCalls int
	deleteAllCount int
}

func (s *stubChatStore) Create(_ context.Context, userEmail string) (*models.Chat, bool, error) {
	s.createCalls++
	if s.reuse {
		for _, c := range s.chats {
			if c.UserEmail == userEmail {
				return c, true, nil
			}
		}
	}
	chat := &models.Chat{ID: uuid.New(), UserEmail: userEmail}
	if s.chats == nil {
		s.chats = map[uuid.UUID]*models.Chat{}
	}
	s.chats[chat.ID] = chat
	return chat, false, nil
}

func (s *stubChatStore) GetByOwner(_ context.Context, userEmail string, id uuid.UUID) (*models.Chat, error) {
	if c, ok := s.chats[id]; ok && c.UserEmail == userEmail {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubChatStore) ListByUser(_ context.Context, userEmail string) ([]*models.Chat, error) {
	var out []*models.Chat
	for _, c := range s.chats {
		if c.UserEmail == userEmail {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubChatStore) Delete(_ context.Context, userEmail string, id uuid.UUID) error {
	if c, ok := s.chats[id]; ok && c.UserEmail == userEmail {
		delete(s.chats, id)
		return nil
	}
	return pgx.ErrNoRows
}

func (s *stubChatStore) DeleteAllByUser(_ context.Context, userEmail string) (int, error) {
	s.deleteAllCalls++
	count := 0
	for id, c := range s.chats {
		if c.UserEmail == userEmail {
			delete(s.chats, id)
			count++
		}
	}
	s.deleteAllCount = count
	return count, nil
}

type stubMessageStore struct {
	byChat map[uuid.UUID][]*models.Message
}

func (s *stubMessageStore) Append(_ context.Context, m *models.Message) error {
	if s.byChat == nil {
		s.byChat = map[uuid.UUID][]*models.Message{}
	}
	m.ID = uuid.New()
	s.byChat[m.ChatID] = append(s.byChat[m.ChatID], m)
	return nil
}

func (s *stubMessageStore) ListByChat(_ context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	return s.byChat[chatID], nil
}

func chatRouter(h *ChatHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/chats", h.Create)
	r.Get("/api/chats", h.List)
	r.Delete("/api/chats", h.DeleteAll)
	r.Delete("/api/chats/{id}", h.Delete)
	r.Get("/api/chats/{id}/messages", h.ListMessages)
	r.Post("/api/chats/{id}/messages", h.AppendMessage)
	return r
}

func authedRequest(method, target string, body []byte, email string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{
		Email:  email,
		Name:   "Test User",
		Avatar: "/avatar.png",
	}))
}

func TestChatCreate_NewChat(t *testing.T) {
	store := &stubChatStore{}
	router := chatRouter(NewChatHandler(store, &stubMessageStore{}, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/api/chats", nil, "user@example.com"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || resp.ChatID == "" {
		t.Errorf("Expected success with a chat id, got %+v", resp)
	}
	if resp.Message != "New chat created." {
		t.Errorf("Expected 'New chat created.', got %q", resp.Message)
	}
}

func TestChatCreate_ReusesEmptyChat(t *testing.T) {
	existing := &models.Chat{ID: uuid.New(), UserEmail: "user@example.com"}
	store := &stubChatStore{
		chats: map[uuid.UUID]*models.Chat{existing.ID: existing},
		reuse: true,
	}
	router := chatRouter(NewChatHandler(store, &stubMessageStore{}, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/api/chats", nil, "user@example.com"))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for reused chat, got %d", rr.Code)
	}

	var resp models.ChatResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ChatID != existing.ID.String() {
		t.Errorf("Expected existing chat id %s, got %s", existing.ID, resp.ChatID)
	}
	if resp.Message != "Returning existing empty chat." {
		t.Errorf("Expected reuse message, got %q", resp.Message)
	}
}

func TestChatDelete(t *testing.T) {
	owned := &models.Chat{ID: uuid.New(), UserEmail: "user@example.com"}
	store := &stubChatStore{chats: map[uuid.UUID]*models.Chat{owned.ID: owned}}
	router := chatRouter(NewChatHandler(store, &stubMessageStore{}, nil))

	tests := []struct {
		name       string
		target     string
		email      string
		wantStatus int
	}{
		{"owner deletes own chat", "/api/chats/" + owned.ID.String(), "user@example.com", http.StatusOK},
		{"foreign chat is not found", "/api/chats/" + uuid.NewString(), "user@example.com", http.StatusNotFound},
		{"malformed id", "/api/chats/not-a-uuid", "user@example.com", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, authedRequest(http.MethodDelete, tc.target, nil, tc.email))

			if rr.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestChatDeleteAll(t *testing.T) {
	a := &models.Chat{ID: uuid.New(), UserEmail: "user@example.com"}
	b := &models.Chat{ID: uuid.New(), UserEmail: "user@example.com"}
	other := &models.Chat{ID: uuid.New(), UserEmail: "other@example.com"}
	store := &stubChatStore{chats: map[uuid.UUID]*models.Chat{a.ID: a, b.ID: b, other.ID: other}}
	router := chatRouter(NewChatHandler(store, &stubMessageStore{}, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/api/chats", nil, "user@example.com"))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp models.DeleteResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Message != "Successfully deleted 2 chats." {
		t.Errorf("Expected deletion count message, got %q", resp.Message)
	}

	if _, ok := store.chats[other.ID]; !ok {
		t.Errorf("Another user's chat must survive a bulk delete")
	}
}

func TestChatDeleteAll_NoChats(t *testing.T) {
	store := &stubChatStore{}
	router := chatRouter(NewChatHandler(store, &stubMessageStore{}, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/api/chats", nil, "user@example.com"))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for empty delete, got %d", rr.Code)
	}

	var resp models.DeleteResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success || resp.Message != "No chats found to delete." {
		t.Errorf("Expected success with no-chats message, got %+v", resp)
	}
}

func TestListMessages_OwnershipEnforced(t *testing.T) {
	owned := &models.Chat{ID: uuid.New(), UserEmail: "owner@example.com"}
	store := &stubChatStore{chats: map[uuid.UUID]*models.Chat{owned.ID: owned}}
	messages := &stubMessageStore{byChat: map[uuid.UUID][]*models.Message{
		owned.ID: {{ID: uuid.New(), ChatID: owned.ID, Text: "hello"}},
	}}
	router := chatRouter(NewChatHandler(store, messages, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/api/chats/"+owned.ID.String()+"/messages", nil, "intruder@example.com"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 for foreign chat, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/api/chats/"+owned.ID.String()+"/messages", nil, "owner@example.com"))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for owner, got %d", rr.Code)
	}

	var resp struct {
		Success  bool              `json:"success"`
		Messages []*models.Message `json:"messages"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "hello" {
		t.Errorf("Expected the stored message back, got %+v", resp.Messages)
	}
}

func TestAppendMessage(t *testing.T) {
	owned := &models.Chat{ID: uuid.New(), UserEmail: "user@example.com"}
	store := &stubChatStore{chats: map[uuid.UUID]*models.Chat{owned.ID: owned}}
	messages := &stubMessageStore{}
	router := chatRouter(NewChatHandler(store, messages, nil))

	body, _ := json.Marshal(map[string]string{"text": "What is Go?"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/api/chats/"+owned.ID.String()+"/messages", body, "user@example.com"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	stored := messages.byChat[owned.ID]
	if len(stored) != 1 {
		t.Fatalf("Expected one stored message, got %d", len(stored))
	}
	if stored[0].Author.ID != "user@example.com" || stored[0].Author.Name != "Test User" {
		t.Errorf("Expected author from the caller identity, got %+v", stored[0].Author)
	}
}

func TestAppendMessage_EmptyText(t *testing.T) {
	owned := &models.Chat{ID: uuid.New(), UserEmail: "user@example.com"}
	store := &stubChatStore{chats: map[uuid.UUID]*models.Chat{owned.ID: owned}}
	router := chatRouter(NewChatHandler(store, &stubMessageStore{}, nil))

	body, _ := json.Marshal(map[string]string{"text": "   "})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/api/chats/"+owned.ID.String()+"/messages", body, "user@example.com"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400 for blank text, got %d", rr.Code)
	}
}
