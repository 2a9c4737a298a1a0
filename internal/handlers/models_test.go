package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chadgpt-backend/internal/models"
	"chadgpt-backend/internal/services"
)

type stubModelLister struct {
	options []models.ModelOption
	err     error
}

func (s *stubModelLister) ListModels(_ context.Context) ([]models.ModelOption, error) {
	return s.options, s.err
}

func TestModelsList(t *testing.T) {
	h := NewModelsHandler(&stubModelLister{options: []models.ModelOption{
		{Value: "gemini-2.0-flash", Label: "Gemini 2.0 Flash"},
		{Value: "gemini-1.5-pro", Label: "Gemini 1.5 Pro"},
	}})

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp models.ModelsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.ModelOptions) != 2 || resp.ModelOptions[0].Value != "gemini-2.0-flash" {
		t.Errorf("Unexpected model options: %+v", resp.ModelOptions)
	}
}

func TestModelsList_EmptyIsNotNull(t *testing.T) {
	h := NewModelsHandler(&stubModelLister{})

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if string(raw["modelOptions"]) != "[]" {
		t.Errorf("Expected an empty array, got %s", raw["modelOptions"])
	}
}

func TestModelsList_UpstreamFailure(t *testing.T) {
	h := NewModelsHandler(&stubModelLister{err: &services.UpstreamError{Message: "listing failed"}})

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	var resp models.APIError
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Success || resp.Error == "" {
		t.Errorf("Expected a populated error body, got %+v", resp)
	}
}
