package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/apperrors"
	"github.com/tabchat-ai/tabchat-engine/pkg/llm"
	"github.com/tabchat-ai/tabchat-engine/pkg/models"
	"github.com/tabchat-ai/tabchat-engine/pkg/services"
)

// AskRequest for POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// ExamplesResponse for GET /api/examples.
type ExamplesResponse struct {
	Questions []string `json:"questions"`
}

// QueryHandler handles question answering HTTP requests.
type QueryHandler struct {
	pipeline services.Pipeline
	logger   *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(pipeline services.Pipeline, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.Ask)
	mux.HandleFunc("GET /api/stats", h.Stats)
	mux.HandleFunc("GET /api/examples", h.Examples)
}

// Ask handles POST /api/ask
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_question", "Question is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.pipeline.Ask(r.Context(), question)
	if err != nil {
		h.logger.Error("Failed to process question",
			zap.String("question", question),
			zap.Error(err))
		status, code := classifyPipelineError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: result.Succeeded(), Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/stats
func (h *QueryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{Success: true, Data: h.pipeline.Stats()}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Examples handles GET /api/examples
func (h *QueryHandler) Examples(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{Success: true, Data: ExamplesResponse{Questions: models.ExampleQuestions}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// classifyPipelineError maps a propagated pipeline error to an HTTP status
// and error code. Store outages and LLM failures are upstream problems, not
// ours.
func classifyPipelineError(err error) (int, string) {
	var llmErr *llm.Error
	switch {
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.As(err, &llmErr):
		return http.StatusBadGateway, "llm_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
