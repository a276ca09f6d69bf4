package relationship

import (
	"time"

	"github.com/google/uuid"
)

// BlockUserRequest for POST /users/{id}/block
type BlockUserRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ReportUserRequest for POST /users/{id}/report
type ReportUserRequest struct {
	Reason  string `json:"reason" validate:"required,report_reason"`
	Details string `json:"details" validate:"max=2000"`
	Block   bool   `json:"block"`
}

// InteractionRequest for POST /users/{id}/interactions
type InteractionRequest struct {
	Type string `json:"type" validate:"required,interaction_type"`
}

// InteractionResponse reports the outcome of recording an interaction
type InteractionResponse struct {
	Matched bool `json:"matched"`
}

// BlockedUserResponse represents a blocked user in API responses
type BlockedUserResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	BlockedAt string    `json:"blocked_at"`
}

// BlockedUserFromEntity converts entity to response
func BlockedUserFromEntity(edge *BlockEdge) *BlockedUserResponse {
	return &BlockedUserResponse{
		UserID:    edge.BlockedID,
		Reason:    edge.Reason,
		BlockedAt: edge.CreatedAt.Format(time.RFC3339),
	}
}

// ReviewReportRequest for PATCH /admin/reports/{id}
type ReviewReportRequest struct {
	Status string `json:"status" validate:"required"`
}

// ReportResponse represents a safety report in admin responses
type ReportResponse struct {
	ID         uuid.UUID `json:"id"`
	ReporterID uuid.UUID `json:"reporter_id"`
	ReportedID uuid.UUID `json:"reported_id"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  string    `json:"created_at"`
}

// ReportFromEntity converts entity to response
func ReportFromEntity(r *Report) *ReportResponse {
	return &ReportResponse{
		ID:         r.ID,
		ReporterID: r.ReporterID,
		ReportedID: r.ReportedID,
		Reason:     r.Reason,
		Details:    r.Details,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}

// MatchResponse represents an active match in API responses
type MatchResponse struct {
	MatchID   string    `json:"match_id"`
	UserID    uuid.UUID `json:"user_id"`
	MatchedAt string    `json:"matched_at"`
}

// MatchFromEntity converts entity to response from the viewer's perspective
func MatchFromEntity(match *MatchEdge, viewerID uuid.UUID) *MatchResponse {
	return &MatchResponse{
		MatchID:   match.Key(),
		UserID:    match.OtherUser(viewerID),
		MatchedAt: match.CreatedAt.Format(time.RFC3339),
	}
}
