package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccessChecker defines interface for checking communication access between users
type AccessChecker interface {
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// Service handles conversation business logic
type Service struct {
	repo          Repository
	accessChecker AccessChecker
}

// NewService creates conversation service
func NewService(repo Repository, accessChecker AccessChecker) *Service {
	return &Service{repo: repo, accessChecker: accessChecker}
}

// List returns the user's conversations, most recently active first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SendMessage appends a message to a conversation the sender participates in
func (s *Service) SendMessage(ctx context.Context, senderID uuid.UUID, conversationID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	blocked, err := s.accessChecker.IsBlocked(ctx, senderID, conv.OtherParticipant(senderID))
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}

	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.AppendMessage(ctx, conv, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages returns messages for a conversation with pagination
func (s *Service) Messages(ctx context.Context, userID uuid.UUID, conversationID string, limit, offset int) ([]*Message, error) {
	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// MarkRead zeroes the caller's unread counter
func (s *Service) MarkRead(ctx context.Context, userID uuid.UUID, conversationID string) error {
	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	return s.repo.MarkRead(ctx, conversationID, userID)
}

// PurgeBetween removes every conversation and message between the pair. It
// is the conversation side of the block and unmatch cascades.
func (s *Service) PurgeBetween(ctx context.Context, a, b uuid.UUID) error {
	return s.repo.PurgeBetween(ctx, a, b)
}

// EnsureBetween creates the conversation for a fresh match
func (s *Service) EnsureBetween(ctx context.Context, a, b uuid.UUID) error {
	return s.repo.EnsureBetween(ctx, a, b)
}
