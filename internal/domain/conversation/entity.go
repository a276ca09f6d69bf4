package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a direct conversation between two matched users, keyed by
// the canonical pair key. It must never outlive a block between its
// participants: the block cascade deletes it together with its messages.
type Conversation struct {
	ID                 string
	Participant1ID     uuid.UUID
	Participant2ID     uuid.UUID
	LastMessagePreview string
	LastMessageAt      time.Time
	LastSenderID       uuid.UUID
	MessageCount       int
	Unread             map[uuid.UUID]int
	CreatedAt          time.Time
}

// HasParticipant checks if user is in this conversation
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// OtherParticipant returns the other user in the conversation
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

// UnreadFor returns the unread counter for one participant
func (c *Conversation) UnreadFor(userID uuid.UUID) int {
	return c.Unread[userID]
}

// Message is one append-only message inside a conversation
type Message struct {
	ID             uuid.UUID
	ConversationID string
	SenderID       uuid.UUID
	Body           string
	CreatedAt      time.Time
}
