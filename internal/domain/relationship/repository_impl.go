package relationship

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/heartlink/heartlink-api/internal/docstore"
)

// Collection names in the document store
const (
	colUsers        = "users"
	colBlocks       = "blocks"
	colMatches      = "matches"
	colInteractions = "interactions"
	colReports      = "reports"
)

type repository struct {
	store docstore.Store
}

// NewRepository creates relationship repository over the document store
func NewRepository(store docstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) GetBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*BlockEdge, error) {
	doc, err := r.store.Get(ctx, colBlocks, PairKey(blockerID, blockedID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return blockFromDoc(doc), nil
}

func (r *repository) UpsertBlock(ctx context.Context, edge *BlockEdge) error {
	return r.store.Set(ctx, colBlocks, edge.Key(), blockToDoc(edge))
}

func (r *repository) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return r.store.Delete(ctx, colBlocks, PairKey(blockerID, blockedID))
}

func (r *repository) ListBlocks(ctx context.Context, blockerID uuid.UUID) ([]*BlockEdge, error) {
	entries, err := r.store.Query(ctx, colBlocks, docstore.Where("blocker_id", docstore.OpEqual, blockerID.String()))
	if err != nil {
		return nil, err
	}
	blocks := make([]*BlockEdge, 0, len(entries))
	for _, entry := range entries {
		blocks = append(blocks, blockFromDoc(entry.Doc))
	}
	return blocks, nil
}

func (r *repository) AddBlockedID(ctx context.Context, userID, blockedID uuid.UUID) error {
	return r.store.Update(ctx, colUsers, userID.String(), docstore.Document{
		"blocked_ids": docstore.Union(blockedID.String()),
	})
}

func (r *repository) RemoveBlockedID(ctx context.Context, userID, blockedID uuid.UUID) error {
	return r.store.Update(ctx, colUsers, userID.String(), docstore.Document{
		"blocked_ids": docstore.Remove(blockedID.String()),
	})
}

func (r *repository) BlockedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	doc, err := r.store.Get(ctx, colUsers, userID.String())
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	raw := doc.StringSlice("blocked_ids")
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *repository) GetMatch(ctx context.Context, a, b uuid.UUID) (*MatchEdge, error) {
	doc, err := r.store.Get(ctx, colMatches, CanonicalPairKey(a, b))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return matchFromDoc(doc), nil
}

func (r *repository) UpsertMatch(ctx context.Context, match *MatchEdge) error {
	return r.store.Set(ctx, colMatches, match.Key(), matchToDoc(match))
}

func (r *repository) MarkUnmatched(ctx context.Context, a, b uuid.UUID) error {
	return r.store.Update(ctx, colMatches, CanonicalPairKey(a, b), docstore.Document{
		"unmatched":    true,
		"unmatched_at": time.Now().UTC(),
	})
}

func (r *repository) DeleteMatchPair(ctx context.Context, a, b uuid.UUID) error {
	// Both orderings: older writers keyed matches directionally, so the
	// cascade clears either form.
	if err := r.store.Delete(ctx, colMatches, PairKey(a, b)); err != nil {
		return err
	}
	return r.store.Delete(ctx, colMatches, PairKey(b, a))
}

func (r *repository) ListActiveMatches(ctx context.Context, userID uuid.UUID) ([]*MatchEdge, error) {
	entries, err := r.store.Query(ctx, colMatches,
		docstore.Where("users", docstore.OpArrayContains, userID.String()),
		docstore.Where("unmatched", docstore.OpEqual, false),
	)
	if err != nil {
		return nil, err
	}
	matches := make([]*MatchEdge, 0, len(entries))
	for _, entry := range entries {
		matches = append(matches, matchFromDoc(entry.Doc))
	}
	return matches, nil
}

func (r *repository) GetInteraction(ctx context.Context, userID, targetID uuid.UUID) (*InteractionEdge, error) {
	doc, err := r.store.Get(ctx, colInteractions, PairKey(userID, targetID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return interactionFromDoc(doc), nil
}

func (r *repository) UpsertInteraction(ctx context.Context, edge *InteractionEdge) error {
	return r.store.Set(ctx, colInteractions, edge.Key(), interactionToDoc(edge))
}

func (r *repository) DeleteInteractionPair(ctx context.Context, a, b uuid.UUID) error {
	if err := r.store.Delete(ctx, colInteractions, PairKey(a, b)); err != nil {
		return err
	}
	return r.store.Delete(ctx, colInteractions, PairKey(b, a))
}

func (r *repository) DeleteBlockedInteractionPair(ctx context.Context, a, b uuid.UUID) error {
	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		edge, err := r.GetInteraction(ctx, pair[0], pair[1])
		if err != nil {
			return err
		}
		if edge == nil || edge.Type != InteractionBlocked {
			continue
		}
		if err := r.store.Delete(ctx, colInteractions, PairKey(pair[0], pair[1])); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) ListInteractionsFrom(ctx context.Context, userID uuid.UUID) ([]*InteractionEdge, error) {
	entries, err := r.store.Query(ctx, colInteractions, docstore.Where("user_id", docstore.OpEqual, userID.String()))
	if err != nil {
		return nil, err
	}
	edges := make([]*InteractionEdge, 0, len(entries))
	for _, entry := range entries {
		edges = append(edges, interactionFromDoc(entry.Doc))
	}
	return edges, nil
}

func (r *repository) CreateReport(ctx context.Context, report *Report) error {
	return r.store.Set(ctx, colReports, report.ID.String(), reportToDoc(report))
}

func (r *repository) ListReportsByStatus(ctx context.Context, status ReportStatus) ([]*Report, error) {
	entries, err := r.store.Query(ctx, colReports, docstore.Where("status", docstore.OpEqual, string(status)))
	if err != nil {
		return nil, err
	}
	reports := make([]*Report, 0, len(entries))
	for _, entry := range entries {
		reports = append(reports, reportFromDoc(entry.Key, entry.Doc))
	}
	return reports, nil
}

func (r *repository) SetReportStatus(ctx context.Context, reportID uuid.UUID, status ReportStatus) error {
	// Update is an upsert at the store level, so probe first instead of
	// minting a stub report for an unknown id.
	if _, err := r.store.Get(ctx, colReports, reportID.String()); err != nil {
		return err
	}
	return r.store.Update(ctx, colReports, reportID.String(), docstore.Document{
		"status": string(status),
	})
}

// --- document mapping ---

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func blockToDoc(e *BlockEdge) docstore.Document {
	return docstore.Document{
		"blocker_id": e.BlockerID.String(),
		"blocked_id": e.BlockedID.String(),
		"reason":     e.Reason,
		"created_at": e.CreatedAt.UTC(),
	}
}

func blockFromDoc(doc docstore.Document) *BlockEdge {
	return &BlockEdge{
		BlockerID: parseID(doc.String("blocker_id")),
		BlockedID: parseID(doc.String("blocked_id")),
		Reason:    doc.String("reason"),
		CreatedAt: doc.Time("created_at"),
	}
}

func matchToDoc(m *MatchEdge) docstore.Document {
	return docstore.Document{
		"user1_id":     m.User1ID.String(),
		"user2_id":     m.User2ID.String(),
		"users":        []any{m.User1ID.String(), m.User2ID.String()},
		"unmatched":    m.Unmatched,
		"created_at":   m.CreatedAt.UTC(),
		"unmatched_at": m.UnmatchedAt.UTC(),
	}
}

func matchFromDoc(doc docstore.Document) *MatchEdge {
	return &MatchEdge{
		User1ID:     parseID(doc.String("user1_id")),
		User2ID:     parseID(doc.String("user2_id")),
		Unmatched:   doc.Bool("unmatched"),
		CreatedAt:   doc.Time("created_at"),
		UnmatchedAt: doc.Time("unmatched_at"),
	}
}

func interactionToDoc(e *InteractionEdge) docstore.Document {
	doc := docstore.Document{
		"user_id":        e.UserID.String(),
		"target_user_id": e.TargetUserID.String(),
		"type":           string(e.Type),
		"created_at":     e.CreatedAt.UTC(),
	}
	if e.ExpiresAt != nil {
		doc["expires_at"] = e.ExpiresAt.UTC()
	}
	return doc
}

func interactionFromDoc(doc docstore.Document) *InteractionEdge {
	edge := &InteractionEdge{
		UserID:       parseID(doc.String("user_id")),
		TargetUserID: parseID(doc.String("target_user_id")),
		Type:         InteractionType(doc.String("type")),
		CreatedAt:    doc.Time("created_at"),
	}
	if expires := doc.Time("expires_at"); !expires.IsZero() {
		edge.ExpiresAt = &expires
	}
	return edge
}

func reportToDoc(r *Report) docstore.Document {
	return docstore.Document{
		"reporter_id": r.ReporterID.String(),
		"reported_id": r.ReportedID.String(),
		"reason":      r.Reason,
		"details":     r.Details,
		"status":      string(r.Status),
		"created_at":  r.CreatedAt.UTC(),
	}
}

func reportFromDoc(key string, doc docstore.Document) *Report {
	return &Report{
		ID:         parseID(key),
		ReporterID: parseID(doc.String("reporter_id")),
		ReportedID: parseID(doc.String("reported_id")),
		Reason:     doc.String("reason"),
		Details:    doc.String("details"),
		Status:     ReportStatus(doc.String("status")),
		CreatedAt:  doc.Time("created_at"),
	}
}
