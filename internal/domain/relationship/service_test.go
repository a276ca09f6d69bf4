package relationship_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heartlink/heartlink-api/internal/docstore"
	"github.com/heartlink/heartlink-api/internal/domain/conversation"
	"github.com/heartlink/heartlink-api/internal/domain/relationship"
)

type env struct {
	store   docstore.Store
	service *relationship.Service
	convs   *conversation.Service
}

func newEnv(t *testing.T, store docstore.Store) *env {
	t.Helper()

	relRepo := relationship.NewRepository(store)
	convRepo := conversation.NewRepository(store)

	var service *relationship.Service
	convService := conversation.NewService(convRepo, accessFunc(func(ctx context.Context, a, b uuid.UUID) (bool, error) {
		return service.IsBlocked(ctx, a, b)
	}))
	service = relationship.NewService(relRepo, convService)

	return &env{store: store, service: service, convs: convService}
}

type accessFunc func(ctx context.Context, a, b uuid.UUID) (bool, error)

func (f accessFunc) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return f(ctx, a, b)
}

// match creates a mutual like between the two users and returns the
// conversation ID created for the match
func (e *env) match(t *testing.T, a, b uuid.UUID) string {
	t.Helper()
	ctx := context.Background()

	res, err := e.service.RecordInteraction(ctx, a, b, relationship.InteractionLike)
	if err != nil {
		t.Fatalf("first like failed: %v", err)
	}
	if res.Matched {
		t.Fatalf("one-sided like should not match")
	}

	res, err = e.service.RecordInteraction(ctx, b, a, relationship.InteractionLike)
	if err != nil {
		t.Fatalf("second like failed: %v", err)
	}
	if !res.Matched {
		t.Fatalf("mutual like should match")
	}

	return relationship.CanonicalPairKey(a, b)
}

func TestBlockDestroysMatchConversationAndMessages(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	convID := e.match(t, alice, bob)

	for i := 0; i < 5; i++ {
		sender := alice
		if i%2 == 1 {
			sender = bob
		}
		if _, err := e.convs.SendMessage(ctx, sender, convID, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("send message %d failed: %v", i, err)
		}
	}

	if err := e.service.Block(ctx, alice, bob, "harassment"); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	blocked, err := e.service.IsBlocked(ctx, alice, bob)
	if err != nil || !blocked {
		t.Fatalf("expected blocked after block, got %v err=%v", blocked, err)
	}
	blocked, err = e.service.IsBlocked(ctx, bob, alice)
	if err != nil || !blocked {
		t.Fatalf("blocked check must hold in both argument orders")
	}

	for _, u := range []uuid.UUID{alice, bob} {
		matches, err := e.service.ListMatches(ctx, u)
		if err != nil {
			t.Fatalf("list matches failed: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no active matches for %s, got %d", u, len(matches))
		}

		convs, err := e.convs.List(ctx, u)
		if err != nil {
			t.Fatalf("list conversations failed: %v", err)
		}
		if len(convs) != 0 {
			t.Fatalf("expected no conversations for %s, got %d", u, len(convs))
		}
	}

	if _, err := e.convs.Messages(ctx, alice, convID, 50, 0); !errors.Is(err, conversation.ErrConversationNotFound) {
		t.Fatalf("expected conversation gone, got %v", err)
	}

	leftovers, err := e.store.Query(ctx, "messages", docstore.Where("conversation_id", docstore.OpEqual, convID))
	if err != nil {
		t.Fatalf("query messages failed: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("expected all messages purged, %d remain", len(leftovers))
	}

	// Discovery exclusion must be symmetric even though only alice blocked
	for _, pair := range [][2]uuid.UUID{{alice, bob}, {bob, alice}} {
		excluded, err := e.service.ExcludedIDs(ctx, pair[0])
		if err != nil {
			t.Fatalf("excluded ids failed: %v", err)
		}
		found := false
		for _, id := range excluded {
			if id == pair[1] {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s excluded for %s", pair[1], pair[0])
		}
	}
}

func TestUnblockLiftsExclusionWithoutResurrection(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	convID := e.match(t, alice, bob)
	if _, err := e.convs.SendMessage(ctx, alice, convID, "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := e.service.Block(ctx, alice, bob, ""); err != nil {
		t.Fatalf("block failed: %v", err)
	}
	if err := e.service.Unblock(ctx, alice, bob); err != nil {
		t.Fatalf("unblock failed: %v", err)
	}

	blocked, err := e.service.IsBlocked(ctx, alice, bob)
	if err != nil || blocked {
		t.Fatalf("expected not blocked after unblock")
	}

	excluded, err := e.service.ExcludedIDs(ctx, bob)
	if err != nil {
		t.Fatalf("excluded ids failed: %v", err)
	}
	for _, id := range excluded {
		if id == alice {
			t.Fatalf("bob's exclusion of alice should lift with the unblock")
		}
	}

	// The match and conversation destroyed by the block stay destroyed
	matches, err := e.service.ListMatches(ctx, alice)
	if err != nil || len(matches) != 0 {
		t.Fatalf("unblock must not resurrect matches, got %d err=%v", len(matches), err)
	}
	convs, err := e.convs.List(ctx, alice)
	if err != nil || len(convs) != 0 {
		t.Fatalf("unblock must not resurrect conversations, got %d err=%v", len(convs), err)
	}
}

func TestBlockIsIdempotent(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := e.service.Block(ctx, alice, bob, "spam"); err != nil {
		t.Fatalf("first block failed: %v", err)
	}
	if err := e.service.Block(ctx, alice, bob, "spam"); err != nil {
		t.Fatalf("repeated block must succeed: %v", err)
	}

	edges, err := e.service.ListMyBlocks(ctx, alice)
	if err != nil {
		t.Fatalf("list blocks failed: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected one block edge, got %d", len(edges))
	}
}

func TestBlockValidation(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice := uuid.New()

	if err := e.service.Block(ctx, alice, alice, ""); !errors.Is(err, relationship.ErrSelfAction) {
		t.Fatalf("expected ErrSelfAction, got %v", err)
	}
	if err := e.service.Block(ctx, alice, uuid.Nil, ""); !errors.Is(err, relationship.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

// batchFailingStore simulates a backend where bulk deletes fail while single
// writes keep working
type batchFailingStore struct {
	docstore.Store
	fail bool
}

func (s *batchFailingStore) BatchCommit(ctx context.Context, ops []docstore.WriteOp) error {
	if s.fail {
		return errors.New("bulk write rejected")
	}
	return s.Store.BatchCommit(ctx, ops)
}

func TestBlockSucceedsWhenConversationPurgeFails(t *testing.T) {
	failing := &batchFailingStore{Store: docstore.NewMemory()}
	e := newEnv(t, failing)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	convID := e.match(t, alice, bob)
	for i := 0; i < 3; i++ {
		if _, err := e.convs.SendMessage(ctx, bob, convID, "hey"); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	failing.fail = true

	// The purge step fails but the block edge is the only primary step
	if err := e.service.Block(ctx, alice, bob, ""); err != nil {
		t.Fatalf("block must survive purge failure: %v", err)
	}

	blocked, err := e.service.IsBlocked(ctx, alice, bob)
	if err != nil || !blocked {
		t.Fatalf("block edge must exist despite purge failure")
	}
}

func TestBlockPurgesConversationAboveBatchLimit(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	convID := e.match(t, alice, bob)
	for i := 0; i < docstore.BatchLimit+100; i++ {
		if _, err := e.convs.SendMessage(ctx, alice, convID, "ping"); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	if err := e.service.Block(ctx, alice, bob, ""); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	leftovers, err := e.store.Query(ctx, "messages", docstore.Where("conversation_id", docstore.OpEqual, convID))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("purge must chunk deletes under the batch limit, %d messages remain", len(leftovers))
	}
}

func TestUnmatchKeepsInteractionEdges(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	convID := e.match(t, alice, bob)
	if _, err := e.convs.SendMessage(ctx, alice, convID, "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := e.service.Unmatch(ctx, alice, bob); err != nil {
		t.Fatalf("unmatch failed: %v", err)
	}

	matches, err := e.service.ListMatches(ctx, bob)
	if err != nil || len(matches) != 0 {
		t.Fatalf("expected no active matches after unmatch")
	}
	convs, err := e.convs.List(ctx, bob)
	if err != nil || len(convs) != 0 {
		t.Fatalf("expected conversation purged after unmatch")
	}

	// The like edges survive an unmatch so neither side reappears in the
	// other's discovery feed
	excluded, err := e.service.ExcludedIDs(ctx, alice)
	if err != nil {
		t.Fatalf("excluded ids failed: %v", err)
	}
	if len(excluded) != 1 || excluded[0] != bob {
		t.Fatalf("expected bob still excluded for alice, got %v", excluded)
	}

	// Repeating the unmatch is a no-op success
	if err := e.service.Unmatch(ctx, alice, bob); err != nil {
		t.Fatalf("repeated unmatch must succeed: %v", err)
	}
}

func TestRmatchAfterUnmatchCreatesFreshConversation(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	e.match(t, alice, bob)
	if err := e.service.Unmatch(ctx, alice, bob); err != nil {
		t.Fatalf("unmatch failed: %v", err)
	}

	// Liking again rematches because the edges are still mutual likes
	res, err := e.service.RecordInteraction(ctx, alice, bob, relationship.InteractionLike)
	if err != nil {
		t.Fatalf("re-like failed: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected rematch on mutual like after unmatch")
	}

	convs, err := e.convs.List(ctx, alice)
	if err != nil {
		t.Fatalf("list conversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected a fresh conversation after rematch, got %d", len(convs))
	}
	if convs[0].MessageCount != 0 {
		t.Fatalf("rematched conversation must start empty")
	}
}

func TestRecordInteractionRejectsBlockedPair(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := e.service.Block(ctx, alice, bob, ""); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	// Either direction is rejected while a block edge exists
	if _, err := e.service.RecordInteraction(ctx, bob, alice, relationship.InteractionLike); !errors.Is(err, relationship.ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
	if _, err := e.service.RecordInteraction(ctx, alice, bob, relationship.InteractionLike); !errors.Is(err, relationship.ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
}

func TestRecordInteractionRejectsInvalidType(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()

	if _, err := e.service.RecordInteraction(ctx, uuid.New(), uuid.New(), relationship.InteractionBlocked); !errors.Is(err, relationship.ErrInvalidInteraction) {
		t.Fatalf("expected ErrInvalidInteraction, got %v", err)
	}
	if _, err := e.service.RecordInteraction(ctx, uuid.New(), uuid.New(), relationship.InteractionType("wave")); !errors.Is(err, relationship.ErrInvalidInteraction) {
		t.Fatalf("expected ErrInvalidInteraction, got %v", err)
	}
}

func TestExpiredInteractionDoesNotExclude(t *testing.T) {
	store := docstore.NewMemory()
	e := newEnv(t, store)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	repo := relationship.NewRepository(store)
	past := time.Now().Add(-time.Hour)
	if err := repo.UpsertInteraction(ctx, &relationship.InteractionEdge{
		UserID:       alice,
		TargetUserID: bob,
		Type:         relationship.InteractionDislike,
		CreatedAt:    past.Add(-90 * 24 * time.Hour),
		ExpiresAt:    &past,
	}); err != nil {
		t.Fatalf("upsert interaction failed: %v", err)
	}

	excluded, err := e.service.ExcludedIDs(ctx, alice)
	if err != nil {
		t.Fatalf("excluded ids failed: %v", err)
	}
	if len(excluded) != 0 {
		t.Fatalf("expired dislike must not exclude, got %v", excluded)
	}
}

func TestReportWithBlockRunsFullCascade(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	e.match(t, alice, bob)

	if err := e.service.Report(ctx, alice, bob, "harassment", "details", true); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	reports, err := e.store.Query(ctx, "reports", docstore.Where("reporter_id", docstore.OpEqual, alice.String()))
	if err != nil {
		t.Fatalf("query reports failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}

	blocked, err := e.service.IsBlocked(ctx, alice, bob)
	if err != nil || !blocked {
		t.Fatalf("report with block must leave the pair blocked")
	}
	matches, err := e.service.ListMatches(ctx, alice)
	if err != nil || len(matches) != 0 {
		t.Fatalf("report with block must unmatch")
	}
}

func TestReportWithoutBlockLeavesRelationship(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	e.match(t, alice, bob)

	if err := e.service.Report(ctx, alice, bob, "spam", "", false); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	blocked, err := e.service.IsBlocked(ctx, alice, bob)
	if err != nil || blocked {
		t.Fatalf("report without block must not block")
	}
	matches, err := e.service.ListMatches(ctx, alice)
	if err != nil || len(matches) != 1 {
		t.Fatalf("report without block must keep the match")
	}
}

func TestReportReviewLifecycle(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := e.service.Report(ctx, alice, bob, "harassment", "unwanted messages", false); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	pending, err := e.service.ListReports(ctx, "")
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending report, got %d", len(pending))
	}
	report := pending[0]
	if report.ReporterID != alice || report.ReportedID != bob {
		t.Fatalf("report carries wrong pair: %v -> %v", report.ReporterID, report.ReportedID)
	}
	if report.Status != relationship.ReportStatusPending {
		t.Fatalf("fresh report must be pending, got %q", report.Status)
	}

	if err := e.service.ReviewReport(ctx, report.ID, relationship.ReportStatusResolved); err != nil {
		t.Fatalf("review failed: %v", err)
	}

	pending, err = e.service.ListReports(ctx, relationship.ReportStatusPending)
	if err != nil {
		t.Fatalf("list pending after review failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("resolved report still listed as pending")
	}
	resolved, err := e.service.ListReports(ctx, relationship.ReportStatusResolved)
	if err != nil {
		t.Fatalf("list resolved failed: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected one resolved report, got %d", len(resolved))
	}
}

func TestReviewReportValidation(t *testing.T) {
	e := newEnv(t, docstore.NewMemory())
	ctx := context.Background()

	if err := e.service.ReviewReport(ctx, uuid.New(), "escalated"); !errors.Is(err, relationship.ErrInvalidReportStatus) {
		t.Fatalf("expected ErrInvalidReportStatus, got %v", err)
	}
	if err := e.service.ReviewReport(ctx, uuid.New(), relationship.ReportStatusPending); !errors.Is(err, relationship.ErrInvalidReportStatus) {
		t.Fatalf("moving back to pending must be rejected, got %v", err)
	}
	if err := e.service.ReviewReport(ctx, uuid.New(), relationship.ReportStatusReviewed); !errors.Is(err, relationship.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if _, err := e.service.ListReports(ctx, "deleted"); !errors.Is(err, relationship.ErrInvalidReportStatus) {
		t.Fatalf("expected ErrInvalidReportStatus for bad filter, got %v", err)
	}
}
