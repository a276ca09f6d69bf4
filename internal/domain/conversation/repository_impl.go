package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartlink/heartlink-api/internal/docstore"
	"github.com/heartlink/heartlink-api/internal/domain/relationship"
)

// Collection names in the document store
const (
	colConversations = "conversations"
	colMessages      = "messages"
)

const unreadPrefix = "unread_"

func unreadField(userID uuid.UUID) string {
	return unreadPrefix + userID.String()
}

type repository struct {
	store docstore.Store
}

// NewRepository creates conversation repository over the document store
func NewRepository(store docstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Get(ctx context.Context, conversationID string) (*Conversation, error) {
	doc, err := r.store.Get(ctx, colConversations, conversationID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return convFromDoc(conversationID, doc), nil
}

func (r *repository) EnsureBetween(ctx context.Context, a, b uuid.UUID) error {
	key := relationship.CanonicalPairKey(a, b)
	_, err := r.store.Get(ctx, colConversations, key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return err
	}

	return r.store.Set(ctx, colConversations, key, docstore.Document{
		"participant1_id": a.String(),
		"participant2_id": b.String(),
		"participants":    []any{a.String(), b.String()},
		"message_count":   int64(0),
		unreadField(a):    int64(0),
		unreadField(b):    int64(0),
		"created_at":      time.Now().UTC(),
	})
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	entries, err := r.store.Query(ctx, colConversations,
		docstore.Where("participants", docstore.OpArrayContains, userID.String()))
	if err != nil {
		return nil, err
	}

	conversations := make([]*Conversation, 0, len(entries))
	for _, entry := range entries {
		conversations = append(conversations, convFromDoc(entry.Key, entry.Doc))
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
	return conversations, nil
}

func (r *repository) AppendMessage(ctx context.Context, conv *Conversation, msg *Message) error {
	if err := r.store.Set(ctx, colMessages, msg.ID.String(), msgToDoc(msg)); err != nil {
		return err
	}

	recipient := conv.OtherParticipant(msg.SenderID)
	return r.store.Update(ctx, colConversations, conv.ID, docstore.Document{
		"last_message_preview": preview(msg.Body),
		"last_message_at":      msg.CreatedAt.UTC(),
		"last_sender_id":       msg.SenderID.String(),
		"message_count":        docstore.Inc(1),
		unreadField(recipient): docstore.Inc(1),
	})
}

func (r *repository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error) {
	entries, err := r.store.Query(ctx, colMessages,
		docstore.Where("conversation_id", docstore.OpEqual, conversationID))
	if err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, msgFromDoc(entry.Key, entry.Doc))
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})

	if offset >= len(messages) {
		return []*Message{}, nil
	}
	messages = messages[offset:]
	if limit > 0 && limit < len(messages) {
		messages = messages[:limit]
	}
	return messages, nil
}

func (r *repository) MarkRead(ctx context.Context, conversationID string, userID uuid.UUID) error {
	return r.store.Update(ctx, colConversations, conversationID, docstore.Document{
		unreadField(userID): int64(0),
	})
}

func (r *repository) PurgeBetween(ctx context.Context, a, b uuid.UUID) error {
	for _, key := range []string{relationship.PairKey(a, b), relationship.PairKey(b, a)} {
		if err := r.deleteWithMessages(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// deleteWithMessages removes the conversation document and every message in
// it as a unit, batching deletes to the store's commit limit.
func (r *repository) deleteWithMessages(ctx context.Context, conversationID string) error {
	entries, err := r.store.Query(ctx, colMessages,
		docstore.Where("conversation_id", docstore.OpEqual, conversationID))
	if err != nil {
		return err
	}

	for start := 0; start < len(entries); start += docstore.BatchLimit {
		end := start + docstore.BatchLimit
		if end > len(entries) {
			end = len(entries)
		}
		ops := make([]docstore.WriteOp, 0, end-start)
		for _, entry := range entries[start:end] {
			ops = append(ops, docstore.DeleteOp(colMessages, entry.Key))
		}
		if err := r.store.BatchCommit(ctx, ops); err != nil {
			return err
		}
	}

	return r.store.Delete(ctx, colConversations, conversationID)
}

func preview(body string) string {
	const max = 120
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	return body[:max]
}

// --- document mapping ---

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func convFromDoc(key string, doc docstore.Document) *Conversation {
	conv := &Conversation{
		ID:                 key,
		Participant1ID:     parseID(doc.String("participant1_id")),
		Participant2ID:     parseID(doc.String("participant2_id")),
		LastMessagePreview: doc.String("last_message_preview"),
		LastMessageAt:      doc.Time("last_message_at"),
		LastSenderID:       parseID(doc.String("last_sender_id")),
		MessageCount:       doc.Int("message_count"),
		CreatedAt:          doc.Time("created_at"),
		Unread:             make(map[uuid.UUID]int),
	}
	for field := range doc {
		if !strings.HasPrefix(field, unreadPrefix) {
			continue
		}
		if id, err := uuid.Parse(strings.TrimPrefix(field, unreadPrefix)); err == nil {
			conv.Unread[id] = doc.Int(field)
		}
	}
	return conv
}

func msgToDoc(m *Message) docstore.Document {
	return docstore.Document{
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID.String(),
		"body":            m.Body,
		"created_at":      m.CreatedAt.UTC(),
	}
}

func msgFromDoc(key string, doc docstore.Document) *Message {
	return &Message{
		ID:             parseID(key),
		ConversationID: doc.String("conversation_id"),
		SenderID:       parseID(doc.String("sender_id")),
		Body:           doc.String("body"),
		CreatedAt:      doc.Time("created_at"),
	}
}
