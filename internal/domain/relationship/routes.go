package relationship

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartlink/heartlink-api/internal/middleware"
)

// Routes returns relationships router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// All routes require authentication
	r.Use(authMiddleware)

	// Block/unblock and safety reports
	r.Post("/users/{id}/block", h.BlockUser)
	r.Delete("/users/{id}/block", h.UnblockUser)
	r.Get("/users/me/blocked", h.ListBlocked)
	r.Post("/users/{id}/report", h.ReportUser)

	// Discovery interactions and matches
	r.Post("/users/{id}/interactions", h.Interact)
	r.Delete("/users/{id}/match", h.Unmatch)
	r.Get("/users/me/matches", h.ListMatches)

	// Safety review queue
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Get("/admin/reports", h.ListReports)
		r.Patch("/admin/reports/{id}", h.ReviewReport)
	})

	return r
}
