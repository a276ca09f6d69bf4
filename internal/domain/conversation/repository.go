package conversation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines conversation data access interface
type Repository interface {
	// Get returns nil when the conversation does not exist.
	Get(ctx context.Context, conversationID string) (*Conversation, error)
	// EnsureBetween creates the conversation for a pair if absent; idempotent.
	EnsureBetween(ctx context.Context, a, b uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Conversation, error)

	// AppendMessage stores the message and bumps the conversation's unread
	// counter for the recipient, last-sender and preview fields.
	AppendMessage(ctx context.Context, conv *Conversation, msg *Message) error
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)
	MarkRead(ctx context.Context, conversationID string, userID uuid.UUID) error

	// PurgeBetween deletes both possible conversation key orderings between
	// the pair, each with all of its messages, in store-sized batches.
	PurgeBetween(ctx context.Context, a, b uuid.UUID) error
}
