package conversation

import (
	"time"

	"github.com/google/uuid"
)

// SendMessageRequest for POST /conversations/{id}/messages
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// ConversationResponse represents a conversation from the viewer's perspective
type ConversationResponse struct {
	ID                 string    `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	LastMessagePreview string    `json:"last_message_preview,omitempty"`
	LastMessageAt      string    `json:"last_message_at,omitempty"`
	UnreadCount        int       `json:"unread_count"`
}

// ConversationFromEntity converts entity to response
func ConversationFromEntity(conv *Conversation, viewerID uuid.UUID) *ConversationResponse {
	resp := &ConversationResponse{
		ID:                 conv.ID,
		UserID:             conv.OtherParticipant(viewerID),
		LastMessagePreview: conv.LastMessagePreview,
		UnreadCount:        conv.UnreadFor(viewerID),
	}
	if !conv.LastMessageAt.IsZero() {
		resp.LastMessageAt = conv.LastMessageAt.Format(time.RFC3339)
	}
	return resp
}

// MessageResponse represents a message in API responses
type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt string    `json:"created_at"`
}

// MessageFromEntity converts entity to response
func MessageFromEntity(msg *Message) *MessageResponse {
	return &MessageResponse{
		ID:        msg.ID,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
}
