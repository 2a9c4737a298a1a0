package handlers

import (
	"context"
	"net/http"

	"chadgpt-backend/internal/models"
)

type modelLister interface {
	ListModels(ctx context.Context) ([]models.ModelOption, error)
}

type ModelsHandler struct {
	completion modelLister
}

func NewModelsHandler(completion modelLister) *ModelsHandler {
	return &ModelsHandler{completion: completion}
}

func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	options, err := h.completion.ListModels(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if options == nil {
		options = []models.ModelOption{}
	}

	writeJSON(w, http.StatusOK, models.ModelsResponse{ModelOptions: options})
}
