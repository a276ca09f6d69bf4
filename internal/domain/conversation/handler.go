package conversation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heartlink/heartlink-api/internal/middleware"
	"github.com/heartlink/heartlink-api/internal/pkg/response"
	"github.com/heartlink/heartlink-api/internal/pkg/validator"
)

// Handler handles conversation HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates conversation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrUserBlocked):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrEmptyMessage):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w)
	}
}

// List handles GET /conversations
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversations, err := h.service.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		items = append(items, ConversationFromEntity(conv, userID))
	}
	response.OK(w, items)
}

// SendMessage handles POST /conversations/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req SendMessageRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	msg, err := h.service.SendMessage(r.Context(), userID, conversationID, req.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, MessageFromEntity(msg))
}

// Messages handles GET /conversations/{id}/messages
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	userID := middleware.GetUserID(r.Context())
	messages, err := h.service.Messages(r.Context(), userID, conversationID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]*MessageResponse, 0, len(messages))
	for _, msg := range messages {
		items = append(items, MessageFromEntity(msg))
	}
	response.OK(w, items)
}

// MarkRead handles POST /conversations/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	userID := middleware.GetUserID(r.Context())
	if err := h.service.MarkRead(r.Context(), userID, conversationID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "read"})
}
