package relationship

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InteractionType classifies a directed interaction edge
type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
	InteractionPing    InteractionType = "ping"
	// InteractionBlocked is terminal: it never expires and only the unblock
	// cascade removes it. Clients cannot record it directly.
	InteractionBlocked InteractionType = "blocked"
)

// Recordable reports whether clients may create this interaction type
func (t InteractionType) Recordable() bool {
	switch t {
	case InteractionLike, InteractionDislike, InteractionPing:
		return true
	}
	return false
}

// PairKey builds the directed document key "from_to"
func PairKey(from, to uuid.UUID) string {
	return from.String() + "_" + to.String()
}

// CanonicalPairKey orders the two ids so both users derive the same key
func CanonicalPairKey(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if strings.Compare(first, second) > 0 {
		first, second = second, first
	}
	return first + "_" + second
}

// BlockEdge is a directed block from one user to another
type BlockEdge struct {
	BlockerID uuid.UUID
	BlockedID uuid.UUID
	Reason    string
	CreatedAt time.Time
}

// Key returns the deterministic document key "blocker_blocked"
func (e *BlockEdge) Key() string {
	return PairKey(e.BlockerID, e.BlockedID)
}

// MatchEdge is the undirected match between two users, stored once under the
// canonical pair key
type MatchEdge struct {
	User1ID     uuid.UUID
	User2ID     uuid.UUID
	Unmatched   bool
	CreatedAt   time.Time
	UnmatchedAt time.Time
}

// Key returns the canonical document key
func (m *MatchEdge) Key() string {
	return CanonicalPairKey(m.User1ID, m.User2ID)
}

// HasUser checks participation
func (m *MatchEdge) HasUser(userID uuid.UUID) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUser returns the counterpart of userID
func (m *MatchEdge) OtherUser(userID uuid.UUID) uuid.UUID {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// InteractionEdge is a directed record used to exclude the target from the
// user's discovery results
type InteractionEdge struct {
	UserID       uuid.UUID
	TargetUserID uuid.UUID
	Type         InteractionType
	CreatedAt    time.Time
	ExpiresAt    *time.Time
}

// Key returns the directed document key "user_target"
func (e *InteractionEdge) Key() string {
	return PairKey(e.UserID, e.TargetUserID)
}

// Active reports whether the edge still excludes the target at the given time.
// Blocked edges never expire.
func (e *InteractionEdge) Active(now time.Time) bool {
	if e.Type == InteractionBlocked {
		return true
	}
	if e.ExpiresAt == nil {
		return true
	}
	return now.Before(*e.ExpiresAt)
}

// ReportStatus tracks moderation progress on a report
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusReviewed ReportStatus = "reviewed"
	ReportStatusResolved ReportStatus = "resolved"
)

// Valid reports whether the status is one of the known moderation states
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusReviewed, ReportStatusResolved:
		return true
	}
	return false
}

// Report is a user-submitted safety report
type Report struct {
	ID         uuid.UUID
	ReporterID uuid.UUID
	ReportedID uuid.UUID
	Reason     string
	Details    string
	Status     ReportStatus
	CreatedAt  time.Time
}
