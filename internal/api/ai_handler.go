package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mailmind/backend/internal/ai"
	"github.com/mailmind/backend/internal/models"
)

// AIHandler exposes the model catalog and the email question endpoint.
type AIHandler struct {
	client *ai.Client
}

func NewAIHandler(client *ai.Client) *AIHandler {
	return &AIHandler{client: client}
}

// GetModels lists the selectable completion models.
func (h *AIHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFromContext(w, r); !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"models":  ai.AvailableModels,
	})
}

type queryRequest struct {
	Query  string                  `json:"query"`
	Model  string                  `json:"model"`
	Emails []models.CanonicalEmail `json:"emails"`
}

// Query answers a natural-language question over the emails the client
// submits. The client sends its already-fetched records back rather than the
// server re-listing them, so the answer matches exactly what the user sees.
func (h *AIHandler) Query(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := identityFromContext(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.Emails == nil {
		writeError(w, http.StatusBadRequest, "Emails data must be an array")
		return
	}
	if req.Model == "" {
		req.Model = ai.DefaultModel
	}
	if !ai.ValidModel(req.Model) {
		writeError(w, http.StatusBadRequest, "Invalid model selected")
		return
	}

	answer, err := h.client.Query(r.Context(), req.Query, req.Model, req.Emails)
	if errors.Is(err, ai.ErrUnknownModel) {
		writeError(w, http.StatusBadRequest, "Invalid model selected")
		return
	}
	if err != nil {
		log.Printf("AIHandler: Query failed for %s: %v", authCtx.Identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process query")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"query":    req.Query,
		"response": answer,
		"model":    req.Model,
	})
}
