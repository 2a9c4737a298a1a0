package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"chadgpt-backend/internal/models"
)

func TestStreamCompletion_Validation(t *testing.T) {
	svc := &CompletionService{}

	tests := []struct {
		name     string
		outbound []models.OutboundMessage
	}{
		{"empty conversation", nil},
		{"ends with assistant message", []models.OutboundMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		}},
		{"ends with system message", []models.OutboundMessage{
			{Role: "system", Content: "be brief"},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.StreamCompletion(context.Background(), "gemini-2.0-flash", tc.outbound)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestGeminiStream_CloseReleasesSlotOnce(t *testing.T) {
	svc := &CompletionService{rateChan: make(chan struct{}, 1)}
	svc.rateChan <- struct{}{}

	if err := svc.acquireRate(context.Background()); err != nil {
		t.Fatalf("Failed to acquire the only slot: %v", err)
	}

	stream := &geminiStream{release: svc.releaseRate}

	// Abandoning the stream without draining it must hand the slot back.
	stream.Close()
	select {
	case <-svc.rateChan:
	default:
		t.Fatal("Slot was not released after Close on an abandoned stream")
	}
	svc.rateChan <- struct{}{}

	// A second Close must not mint an extra slot.
	stream.Close()
	if len(svc.rateChan) != 1 {
		t.Fatalf("Expected exactly one slot after double Close, got %d", len(svc.rateChan))
	}
}

func TestMapUpstreamError(t *testing.T) {
	err := mapUpstreamError(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota exceeded"})
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("Expected RateLimitError for a 429, got %v", err)
	}

	err = mapUpstreamError(errors.New("connection reset"))
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Expected UpstreamError for a generic failure, got %v", err)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello"), genai.Text(", world")}}},
			{Content: nil},
		},
	}

	if got := responseText(resp); got != "Hello, world" {
		t.Errorf("Expected concatenated candidate text, got %q", got)
	}

	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("Expected empty text for an empty response, got %q", got)
	}
}
