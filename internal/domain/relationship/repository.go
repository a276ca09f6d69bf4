package relationship

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines relationship data access interface. Every mutation is
// idempotent: upserts are keyed, deletes use delete-if-exists semantics, and
// the blocked-set operations are set-union/set-remove, so each one can be
// retried or replayed by a cascade without changing the end state.
type Repository interface {
	// Block edges, keyed blocker_blocked. GetBlock returns nil when absent.
	GetBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*BlockEdge, error)
	UpsertBlock(ctx context.Context, edge *BlockEdge) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	ListBlocks(ctx context.Context, blockerID uuid.UUID) ([]*BlockEdge, error)

	// Blocked-set on the user record, used for UI display.
	AddBlockedID(ctx context.Context, userID, blockedID uuid.UUID) error
	RemoveBlockedID(ctx context.Context, userID, blockedID uuid.UUID) error
	BlockedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// Match edges, keyed canonically. GetMatch returns nil when absent.
	GetMatch(ctx context.Context, a, b uuid.UUID) (*MatchEdge, error)
	UpsertMatch(ctx context.Context, match *MatchEdge) error
	MarkUnmatched(ctx context.Context, a, b uuid.UUID) error
	// DeleteMatchPair removes both possible key orderings between the pair.
	DeleteMatchPair(ctx context.Context, a, b uuid.UUID) error
	ListActiveMatches(ctx context.Context, userID uuid.UUID) ([]*MatchEdge, error)

	// Interaction edges, keyed user_target. GetInteraction returns nil when absent.
	GetInteraction(ctx context.Context, userID, targetID uuid.UUID) (*InteractionEdge, error)
	UpsertInteraction(ctx context.Context, edge *InteractionEdge) error
	// DeleteInteractionPair removes both directions regardless of type.
	DeleteInteractionPair(ctx context.Context, a, b uuid.UUID) error
	// DeleteBlockedInteractionPair removes both directions only where the
	// edge type is blocked; other interaction history is untouched.
	DeleteBlockedInteractionPair(ctx context.Context, a, b uuid.UUID) error
	ListInteractionsFrom(ctx context.Context, userID uuid.UUID) ([]*InteractionEdge, error)

	// Reports, keyed by report id. SetReportStatus returns
	// docstore.ErrNotFound when no such report exists.
	CreateReport(ctx context.Context, report *Report) error
	ListReportsByStatus(ctx context.Context, status ReportStatus) ([]*Report, error)
	SetReportStatus(ctx context.Context, reportID uuid.UUID, status ReportStatus) error
}
