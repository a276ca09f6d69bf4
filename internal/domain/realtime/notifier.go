package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/heartlink/heartlink-api/internal/docstore"
)

// Candidate event types raised from snapshot deltas
const (
	EventNewMessage = "new_message"
	EventNewMatch   = "new_match"
)

// Events receives qualifying candidate events; in production this is the
// alert gate, which decides emit-or-suppress.
type Events interface {
	Notify(eventType, title, body string) bool
}

// ViewContext reports what the subscribing user is currently looking at. It
// is owned and updated by the caller; the notifier only reads it.
type ViewContext interface {
	ActiveConversationID() string
}

type conversationState struct {
	unread     int
	lastSender string
	preview    string
	otherUser  string
}

// Notifier watches one user's conversations and matches through the store's
// live queries. The stream is at-least-once and re-delivers full snapshots on
// metadata-only changes, so "new event" is never inferred from a delivery
// itself: each delivery is projected and diffed against the previous local
// snapshot, and only a genuine transition raises a candidate.
type Notifier struct {
	store  docstore.Store
	userID uuid.UUID
	view   ViewContext
	events Events

	mu            sync.Mutex
	convs         map[string]conversationState
	convsPrimed   bool
	matches       map[string]bool
	matchesPrimed bool

	unsubs []docstore.Unsubscribe
}

// NewNotifier creates a diff notifier for one subscribing user
func NewNotifier(store docstore.Store, userID uuid.UUID, view ViewContext, events Events) *Notifier {
	return &Notifier{
		store:   store,
		userID:  userID,
		view:    view,
		events:  events,
		convs:   make(map[string]conversationState),
		matches: make(map[string]bool),
	}
}

// Start opens the live queries. Subscription errors are logged and leave the
// subscription dead; reconnecting is the caller's policy.
func (n *Notifier) Start(ctx context.Context) {
	user := n.userID.String()

	n.unsubs = append(n.unsubs, n.store.Subscribe(ctx, "conversations",
		[]docstore.Filter{docstore.Where("participants", docstore.OpArrayContains, user)},
		n.HandleConversations,
		func(err error) {
			log.Error().Err(err).Str("user_id", user).Msg("Conversation subscription failed")
		},
	))

	n.unsubs = append(n.unsubs, n.store.Subscribe(ctx, "matches",
		[]docstore.Filter{
			docstore.Where("users", docstore.OpArrayContains, user),
			docstore.Where("unmatched", docstore.OpEqual, false),
		},
		n.HandleMatches,
		func(err error) {
			log.Error().Err(err).Str("user_id", user).Msg("Match subscription failed")
		},
	))
}

// Stop tears down the live queries
func (n *Notifier) Stop() {
	for _, unsub := range n.unsubs {
		unsub()
	}
	n.unsubs = nil
}

// HandleConversations processes one full conversation snapshot. A candidate
// fires only when the unread projection increased and the last sender is not
// the subscribing user; a delivery with an unchanged projection (metadata
// re-delivery) or the user's own message raises nothing. The previous
// snapshot is replaced unconditionally afterwards so a skipped candidate can
// never re-trigger on the next delivery.
func (n *Notifier) HandleConversations(entries []docstore.Entry) {
	self := n.userID.String()

	current := make(map[string]conversationState, len(entries))
	for _, entry := range entries {
		state := conversationState{
			unread:     entry.Doc.Int("unread_" + self),
			lastSender: entry.Doc.String("last_sender_id"),
			preview:    entry.Doc.String("last_message_preview"),
		}
		if p1 := entry.Doc.String("participant1_id"); p1 != self {
			state.otherUser = p1
		} else {
			state.otherUser = entry.Doc.String("participant2_id")
		}
		current[entry.Key] = state
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.convsPrimed {
		// The first delivery seeds state: existing unread is not "new".
		n.convs = current
		n.convsPrimed = true
		return
	}

	for id, cur := range current {
		prev := n.convs[id]
		if cur.unread <= prev.unread {
			continue
		}
		if cur.lastSender == self {
			continue
		}
		if n.view != nil && n.view.ActiveConversationID() == id {
			// Already looking at it; the unread counter resets shortly.
			continue
		}
		n.events.Notify(EventNewMessage, "New message", cur.preview)
	}

	n.convs = current
}

// HandleMatches processes one full snapshot of the user's active matches and
// raises a candidate for each match key not present in the previous snapshot.
func (n *Notifier) HandleMatches(entries []docstore.Entry) {
	current := make(map[string]bool, len(entries))
	for _, entry := range entries {
		current[entry.Key] = true
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.matchesPrimed {
		n.matches = current
		n.matchesPrimed = true
		return
	}

	for key := range current {
		if !n.matches[key] {
			n.events.Notify(EventNewMatch, "It's a match!", "You have a new match")
		}
	}

	n.matches = current
}
