package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/heartlink/heartlink-api/internal/docstore"
	"github.com/heartlink/heartlink-api/internal/domain/relationship"
)

type fakeAccessChecker struct {
	blocked map[string]bool
}

func (f *fakeAccessChecker) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return f.blocked[relationship.CanonicalPairKey(a, b)], nil
}

func (f *fakeAccessChecker) block(a, b uuid.UUID) {
	if f.blocked == nil {
		f.blocked = make(map[string]bool)
	}
	f.blocked[relationship.CanonicalPairKey(a, b)] = true
}

func newTestService(t *testing.T) (*Service, *fakeAccessChecker) {
	t.Helper()
	checker := &fakeAccessChecker{}
	return NewService(NewRepository(docstore.NewMemory()), checker), checker
}

func TestSendMessageBumpsRecipientUnreadOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := svc.EnsureBetween(ctx, alice, bob); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	convID := relationship.CanonicalPairKey(alice, bob)

	if _, err := svc.SendMessage(ctx, alice, convID, "hello bob"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.SendMessage(ctx, alice, convID, "you there?"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	convs, err := svc.List(ctx, bob)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(convs))
	}
	conv := convs[0]
	if got := conv.UnreadFor(bob); got != 2 {
		t.Fatalf("expected 2 unread for recipient, got %d", got)
	}
	if got := conv.UnreadFor(alice); got != 0 {
		t.Fatalf("sender's own unread must stay 0, got %d", got)
	}
	if conv.LastSenderID != alice {
		t.Fatalf("last sender should be alice")
	}
	if conv.MessageCount != 2 {
		t.Fatalf("expected message count 2, got %d", conv.MessageCount)
	}
	if conv.LastMessagePreview != "you there?" {
		t.Fatalf("unexpected preview %q", conv.LastMessagePreview)
	}
}

func TestMarkReadZeroesCallerCounter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := svc.EnsureBetween(ctx, alice, bob); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	convID := relationship.CanonicalPairKey(alice, bob)

	if _, err := svc.SendMessage(ctx, alice, convID, "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := svc.MarkRead(ctx, bob, convID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}

	convs, err := svc.List(ctx, bob)
	if err != nil || len(convs) != 1 {
		t.Fatalf("list failed: %v", err)
	}
	if got := convs[0].UnreadFor(bob); got != 0 {
		t.Fatalf("expected unread reset to 0, got %d", got)
	}
}

func TestSendMessageRejectsBlockedPair(t *testing.T) {
	svc, checker := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := svc.EnsureBetween(ctx, alice, bob); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	checker.block(alice, bob)

	convID := relationship.CanonicalPairKey(alice, bob)
	if _, err := svc.SendMessage(ctx, alice, convID, "let me in"); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, bob, eve := uuid.New(), uuid.New(), uuid.New()

	if err := svc.EnsureBetween(ctx, alice, bob); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	convID := relationship.CanonicalPairKey(alice, bob)

	if _, err := svc.SendMessage(ctx, alice, convID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, eve, convID, "hi"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, alice, "missing_conv", "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestEnsureBetweenIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := svc.EnsureBetween(ctx, alice, bob); err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	convID := relationship.CanonicalPairKey(alice, bob)
	if _, err := svc.SendMessage(ctx, alice, convID, "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// Ensuring again must not reset the existing conversation
	if err := svc.EnsureBetween(ctx, bob, alice); err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}

	convs, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(convs))
	}
	if convs[0].MessageCount != 1 {
		t.Fatalf("re-ensure must not wipe messages, count=%d", convs[0].MessageCount)
	}
}

func TestMessagesPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := svc.EnsureBetween(ctx, alice, bob); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	convID := relationship.CanonicalPairKey(alice, bob)

	for i := 0; i < 7; i++ {
		if _, err := svc.SendMessage(ctx, alice, convID, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	page, err := svc.Messages(ctx, bob, convID, 3, 0)
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page))
	}

	rest, err := svc.Messages(ctx, bob, convID, 10, 3)
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(rest) != 4 {
		t.Fatalf("expected 4 remaining messages, got %d", len(rest))
	}
}

func TestPurgeBetweenRemovesBothOrderings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := svc.EnsureBetween(ctx, alice, bob); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	convID := relationship.CanonicalPairKey(alice, bob)
	if _, err := svc.SendMessage(ctx, alice, convID, "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := svc.PurgeBetween(ctx, bob, alice); err != nil {
		t.Fatalf("purge failed: %v", err)
	}

	convs, err := svc.List(ctx, alice)
	if err != nil || len(convs) != 0 {
		t.Fatalf("expected no conversations after purge, got %d err=%v", len(convs), err)
	}
	if _, err := svc.Messages(ctx, alice, convID, 10, 0); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected conversation gone, got %v", err)
	}
}
