package conversation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns conversations router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Get("/{id}/messages", h.Messages)
	r.Post("/{id}/messages", h.SendMessage)
	r.Post("/{id}/read", h.MarkRead)

	return r
}
