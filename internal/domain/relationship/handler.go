package relationship

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heartlink/heartlink-api/internal/middleware"
	"github.com/heartlink/heartlink-api/internal/pkg/response"
	"github.com/heartlink/heartlink-api/internal/pkg/validator"
)

// Handler handles relationship HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates relationship handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfAction), errors.Is(err, ErrMissingUser), errors.Is(err, ErrInvalidInteraction):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrUserBlocked):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrInvalidReportStatus):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrReportNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w)
	}
}

// BlockUser handles POST /users/{id}/block
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req BlockUserRequest
	// A body is optional; blocking needs no reason.
	_ = response.DecodeJSON(r.Body, &req)

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Block(r.Context(), userID, targetID, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "blocked"})
}

// UnblockUser handles DELETE /users/{id}/block
func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Unblock(r.Context(), userID, targetID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "unblocked"})
}

// ListBlocked handles GET /users/me/blocked
func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	blocks, err := h.service.ListMyBlocks(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*BlockedUserResponse, 0, len(blocks))
	for _, block := range blocks {
		items = append(items, BlockedUserFromEntity(block))
	}
	response.OK(w, items)
}

// ReportUser handles POST /users/{id}/report
func (h *Handler) ReportUser(w http.ResponseWriter, r *http.Request) {
	reportedID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req ReportUserRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Report(r.Context(), userID, reportedID, req.Reason, req.Details, req.Block); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, map[string]string{"status": "reported"})
}

// Interact handles POST /users/{id}/interactions
func (h *Handler) Interact(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req InteractionRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	result, err := h.service.RecordInteraction(r.Context(), userID, targetID, InteractionType(req.Type))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, &InteractionResponse{Matched: result.Matched})
}

// Unmatch handles DELETE /users/{id}/match
func (h *Handler) Unmatch(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Unmatch(r.Context(), userID, targetID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "unmatched"})
}

// ListMatches handles GET /users/me/matches
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	matches, err := h.service.ListMatches(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*MatchResponse, 0, len(matches))
	for _, match := range matches {
		items = append(items, MatchFromEntity(match, userID))
	}
	response.OK(w, items)
}

// ListReports handles GET /admin/reports
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	status := ReportStatus(r.URL.Query().Get("status"))
	reports, err := h.service.ListReports(r.Context(), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]*ReportResponse, 0, len(reports))
	for _, report := range reports {
		items = append(items, ReportFromEntity(report))
	}
	response.OK(w, items)
}

// ReviewReport handles PATCH /admin/reports/{id}
func (h *Handler) ReviewReport(w http.ResponseWriter, r *http.Request) {
	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	var req ReviewReportRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.service.ReviewReport(r.Context(), reportID, ReportStatus(req.Status)); err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": req.Status})
}
