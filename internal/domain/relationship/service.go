package relationship

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/heartlink/heartlink-api/internal/docstore"
)

// Exclusion windows for timed interaction edges. A dislike keeps the target
// out of discovery for a season, a ping only while it is still answerable.
const (
	dislikeExclusion = 90 * 24 * time.Hour
	pingExclusion    = 30 * 24 * time.Hour
)

// ConversationPurger is the conversation-side collaborator of the cascades
type ConversationPurger interface {
	// PurgeBetween deletes every conversation document and its messages
	// between the two users, in either key ordering.
	PurgeBetween(ctx context.Context, a, b uuid.UUID) error
	// EnsureBetween creates the conversation for a new match if it does not
	// exist yet.
	EnsureBetween(ctx context.Context, a, b uuid.UUID) error
}

// Service coordinates block, unblock, unmatch and interaction cascades across
// the block, match, conversation and interaction collections
type Service struct {
	repo          Repository
	conversations ConversationPurger
	now           func() time.Time
}

// NewService creates relationship service
func NewService(repo Repository, conversations ConversationPurger) *Service {
	return &Service{repo: repo, conversations: conversations, now: time.Now}
}

// Block blocks target on behalf of actor. The operation is an ordered cascade
// of idempotent steps; only the block-edge upsert itself is allowed to fail
// the call. A user must always be able to block, even when sibling steps hit
// a partial backend failure, so everything else is logged and skipped.
func (s *Service) Block(ctx context.Context, actor, target uuid.UUID, reason string) error {
	if actor == uuid.Nil || target == uuid.Nil {
		return ErrMissingUser
	}
	if actor == target {
		return ErrSelfAction
	}

	now := s.now().UTC()
	steps := []cascadeStep{
		{
			// Unmatch first so its side effects still fire for the other
			// user; block wins over any unmatch failure.
			name: "unmatch_existing",
			run: func(ctx context.Context) error {
				return s.Unmatch(ctx, actor, target)
			},
		},
		{
			name:    "upsert_block_edge",
			primary: true,
			run: func(ctx context.Context) error {
				return s.repo.UpsertBlock(ctx, &BlockEdge{
					BlockerID: actor,
					BlockedID: target,
					Reason:    reason,
					CreatedAt: now,
				})
			},
		},
		{
			name: "add_blocked_set",
			run: func(ctx context.Context) error {
				return s.repo.AddBlockedID(ctx, actor, target)
			},
		},
		{
			name: "delete_match_edges",
			run: func(ctx context.Context) error {
				return s.repo.DeleteMatchPair(ctx, actor, target)
			},
		},
		{
			name: "purge_conversations",
			run: func(ctx context.Context) error {
				return s.conversations.PurgeBetween(ctx, actor, target)
			},
		},
		{
			// Regardless of what type existed before: no interaction
			// residue survives a block.
			name: "delete_interaction_edges",
			run: func(ctx context.Context) error {
				return s.repo.DeleteInteractionPair(ctx, actor, target)
			},
		},
		{
			// Both directions, so discovery exclusion is symmetric even
			// though only one side blocked.
			name: "create_blocked_interactions",
			run: func(ctx context.Context) error {
				if err := s.repo.UpsertInteraction(ctx, &InteractionEdge{
					UserID: actor, TargetUserID: target, Type: InteractionBlocked, CreatedAt: now,
				}); err != nil {
					return err
				}
				return s.repo.UpsertInteraction(ctx, &InteractionEdge{
					UserID: target, TargetUserID: actor, Type: InteractionBlocked, CreatedAt: now,
				})
			},
		},
	}

	return runCascade(ctx, "block", steps)
}

// Unblock lifts the discovery exclusion between actor and target. Matches and
// conversations destroyed by the block stay destroyed. Calling it again is a
// no-op.
func (s *Service) Unblock(ctx context.Context, actor, target uuid.UUID) error {
	if actor == uuid.Nil || target == uuid.Nil {
		return ErrMissingUser
	}
	if actor == target {
		return ErrSelfAction
	}

	steps := []cascadeStep{
		{
			name:    "delete_block_edge",
			primary: true,
			run: func(ctx context.Context) error {
				return s.repo.DeleteBlock(ctx, actor, target)
			},
		},
		{
			name: "remove_blocked_set",
			run: func(ctx context.Context) error {
				return s.repo.RemoveBlockedID(ctx, actor, target)
			},
		},
		{
			name: "delete_blocked_interactions",
			run: func(ctx context.Context) error {
				return s.repo.DeleteBlockedInteractionPair(ctx, actor, target)
			},
		},
	}

	return runCascade(ctx, "unblock", steps)
}

// Unmatch flags the match between actor and target as unmatched and destroys
// the conversation between them. Idempotent: without an active match it is a
// no-op success.
func (s *Service) Unmatch(ctx context.Context, actor, target uuid.UUID) error {
	if actor == uuid.Nil || target == uuid.Nil {
		return ErrMissingUser
	}
	if actor == target {
		return ErrSelfAction
	}

	match, err := s.repo.GetMatch(ctx, actor, target)
	if err != nil {
		return err
	}
	if match == nil || match.Unmatched {
		return nil
	}

	steps := []cascadeStep{
		{
			name:    "mark_unmatched",
			primary: true,
			run: func(ctx context.Context) error {
				return s.repo.MarkUnmatched(ctx, actor, target)
			},
		},
		{
			name: "purge_conversations",
			run: func(ctx context.Context) error {
				return s.conversations.PurgeBetween(ctx, actor, target)
			},
		},
	}

	return runCascade(ctx, "unmatch", steps)
}

// IsBlocked checks whether either user blocks the other. Block edges are the
// source of truth for exclusion checks; the blocked-set is only for display.
func (s *Service) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	edge, err := s.repo.GetBlock(ctx, a, b)
	if err != nil {
		return false, err
	}
	if edge != nil {
		return true, nil
	}
	edge, err = s.repo.GetBlock(ctx, b, a)
	if err != nil {
		return false, err
	}
	return edge != nil, nil
}

// HasBlocked checks the single direction blocker -> target
func (s *Service) HasBlocked(ctx context.Context, blockerID, targetID uuid.UUID) (bool, error) {
	edge, err := s.repo.GetBlock(ctx, blockerID, targetID)
	if err != nil {
		return false, err
	}
	return edge != nil, nil
}

// ListMyBlocks returns the users blocked by the given user, from block edges
func (s *Service) ListMyBlocks(ctx context.Context, userID uuid.UUID) ([]*BlockEdge, error) {
	return s.repo.ListBlocks(ctx, userID)
}

// BlockedIDs returns the blocked-set for UI display
func (s *Service) BlockedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.BlockedIDs(ctx, userID)
}

// ExcludedIDs returns the users to keep out of userID's discovery feed, from
// the still-active interaction edges they have recorded
func (s *Service) ExcludedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	edges, err := s.repo.ListInteractionsFrom(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	ids := make([]uuid.UUID, 0, len(edges))
	for _, edge := range edges {
		if edge.Active(now) && edge.TargetUserID != uuid.Nil {
			ids = append(ids, edge.TargetUserID)
		}
	}
	return ids, nil
}

// ListMatches returns the user's active matches
func (s *Service) ListMatches(ctx context.Context, userID uuid.UUID) ([]*MatchEdge, error) {
	return s.repo.ListActiveMatches(ctx, userID)
}

// InteractionResult reports what recording an interaction produced
type InteractionResult struct {
	Matched bool
}

// RecordInteraction records a like, dislike or ping from actor to target. A
// mutual like creates the match edge and its conversation.
func (s *Service) RecordInteraction(ctx context.Context, actor, target uuid.UUID, interactionType InteractionType) (*InteractionResult, error) {
	if actor == uuid.Nil || target == uuid.Nil {
		return nil, ErrMissingUser
	}
	if actor == target {
		return nil, ErrSelfAction
	}
	if !interactionType.Recordable() {
		return nil, ErrInvalidInteraction
	}

	blocked, err := s.IsBlocked(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}

	now := s.now().UTC()
	edge := &InteractionEdge{
		UserID:       actor,
		TargetUserID: target,
		Type:         interactionType,
		CreatedAt:    now,
	}
	switch interactionType {
	case InteractionDislike:
		expires := now.Add(dislikeExclusion)
		edge.ExpiresAt = &expires
	case InteractionPing:
		expires := now.Add(pingExclusion)
		edge.ExpiresAt = &expires
	}
	if err := s.repo.UpsertInteraction(ctx, edge); err != nil {
		return nil, err
	}

	result := &InteractionResult{}
	if interactionType != InteractionLike {
		return result, nil
	}

	reverse, err := s.repo.GetInteraction(ctx, target, actor)
	if err != nil {
		return nil, err
	}
	if reverse == nil || reverse.Type != InteractionLike {
		return result, nil
	}

	match, err := s.repo.GetMatch(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if match != nil && !match.Unmatched {
		result.Matched = true
		return result, nil
	}

	if err := s.repo.UpsertMatch(ctx, &MatchEdge{
		User1ID:   actor,
		User2ID:   target,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := s.conversations.EnsureBetween(ctx, actor, target); err != nil {
		return nil, err
	}
	result.Matched = true
	return result, nil
}

// Report files a safety report against the reported user, optionally blocking
// them in the same call the way the mobile client's report flow does
func (s *Service) Report(ctx context.Context, reporter, reported uuid.UUID, reason, details string, alsoBlock bool) error {
	if reporter == uuid.Nil || reported == uuid.Nil {
		return ErrMissingUser
	}
	if reporter == reported {
		return ErrSelfAction
	}

	report := &Report{
		ID:         uuid.New(),
		ReporterID: reporter,
		ReportedID: reported,
		Reason:     reason,
		Details:    details,
		Status:     ReportStatusPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return err
	}

	if alsoBlock {
		return s.Block(ctx, reporter, reported, reason)
	}
	return nil
}

// ListReports returns safety reports awaiting review in the given status
func (s *Service) ListReports(ctx context.Context, status ReportStatus) ([]*Report, error) {
	if status == "" {
		status = ReportStatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidReportStatus
	}
	return s.repo.ListReportsByStatus(ctx, status)
}

// ReviewReport moves a report to a new moderation status
func (s *Service) ReviewReport(ctx context.Context, reportID uuid.UUID, status ReportStatus) error {
	if !status.Valid() || status == ReportStatusPending {
		return ErrInvalidReportStatus
	}
	if err := s.repo.SetReportStatus(ctx, reportID, status); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrReportNotFound
		}
		return err
	}
	return nil
}
