package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"chadgpt-backend/internal/models"
)

// Fixed sampling parameters for every relayed completion.
const (
	completionTemperature     = 0.7
	completionTopP            = 1
	completionMaxOutputTokens = 1000
)

type CompletionService struct {
	client   *genai.Client
	rateChan chan struct{} // Token bucket
}

func NewCompletionService(apiKey string, concurrentReqs int) (*CompletionService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Token bucket bounding in-flight upstream streams
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &CompletionService{
		client:   client,
		rateChan: rateChan,
	}, nil
}

func (s *CompletionService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *CompletionService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return &RateLimitError{Message: "The model is busy. Please try again shortly."}
	}
}

func (s *CompletionService) releaseRate() {
	s.rateChan <- struct{}{}
}

// ListModels returns the generation-capable model identifiers upstream
// reports, in the order received. No caching.
func (s *CompletionService) ListModels(ctx context.Context) ([]models.ModelOption, error) {
	it := s.client.ListModels(ctx)

	var options []models.ModelOption
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapUpstreamError(err)
		}

		supported := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supported = true
				break
			}
		}
		if !supported {
			continue
		}

		label := m.DisplayName
		if label == "" {
			label = m.Name
		}
		options = append(options, models.ModelOption{
			Value: strings.TrimPrefix(m.Name, "models/"),
			Label: label,
		})
	}

	return options, nil
}

// TokenStream yields completion text fragments in upstream order. Next
// returns io.EOF after the final fragment. Callers must Close the stream;
// Close is idempotent and safe after Next has already finished.
type TokenStream interface {
	Next() (string, error)
	Close()
}

// StreamCompletion opens a streaming completion for the given conversation.
// The first outbound message may carry the system instruction; the list must
// end with a user utterance. One rate slot is held for the life of the
// returned stream and released exactly once, on the final Next or on Close,
// whichever comes first.
func (s *CompletionService) StreamCompletion(ctx context.Context, modelName string, outbound []models.OutboundMessage) (TokenStream, error) {
	if len(outbound) == 0 {
		return nil, &ValidationError{Message: "outboundMessages must not be empty"}
	}

	last := outbound[len(outbound)-1]
	if last.Role != "user" {
		return nil, &ValidationError{Message: "conversation must end with a user message"}
	}

	model := s.client.GenerativeModel(strings.TrimPrefix(modelName, "models/"))
	model.SetTemperature(completionTemperature)
	model.SetTopP(completionTopP)
	model.SetMaxOutputTokens(completionMaxOutputTokens)

	var history []*genai.Content
	for _, msg := range outbound[:len(outbound)-1] {
		switch msg.Role {
		case "system":
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case "assistant":
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}

	session := model.StartChat()
	session.History = history
	iter := session.SendMessageStream(ctx, genai.Text(last.Content))

	return &geminiStream{iter: iter, release: s.releaseRate}, nil
}

type geminiStream struct {
	iter    *genai.GenerateContentResponseIterator
	release func()
	once    sync.Once
}

func (g *geminiStream) Next() (string, error) {
	resp, err := g.iter.Next()
	if err == iterator.Done {
		g.finish()
		return "", io.EOF
	}
	if err != nil {
		g.finish()
		return "", mapUpstreamError(err)
	}
	return responseText(resp), nil
}

// Close releases the rate slot when a caller abandons the stream before
// draining it. A no-op after Next already returned io.EOF or an error.
func (g *geminiStream) Close() {
	g.finish()
}

func (g *geminiStream) finish() {
	g.once.Do(g.release)
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func mapUpstreamError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &RateLimitError{Message: apiErr.Message}
	}
	return &UpstreamError{Message: err.Error()}
}
