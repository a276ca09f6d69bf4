package docstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store with the same snapshot-fanout semantics as the
// hosted backend: every mutation re-delivers the full result set to matching
// subscriptions. It backs the test suites of every domain package.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]Document
	subs map[string][]*memorySub
}

type memorySub struct {
	filters    []Filter
	onSnapshot SnapshotHandler
	closed     bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]map[string]Document),
		subs: make(map[string][]*memorySub),
	}
}

func (m *Memory) Get(ctx context.Context, collection, key string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *Memory) Set(ctx context.Context, collection, key string, doc Document) error {
	m.mu.Lock()
	m.apply(WriteOp{Kind: WriteSet, Collection: collection, Key: key, Fields: doc})
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, key string, fields Document) error {
	m.mu.Lock()
	m.apply(WriteOp{Kind: WriteUpdate, Collection: collection, Key: key, Fields: fields})
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	m.apply(WriteOp{Kind: WriteDelete, Collection: collection, Key: key})
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, filters ...Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryLocked(collection, filters), nil
}

func (m *Memory) BatchCommit(ctx context.Context, ops []WriteOp) error {
	if len(ops) > BatchLimit {
		return ErrBatchTooLarge
	}

	touched := make(map[string]bool)
	m.mu.Lock()
	for _, op := range ops {
		m.apply(op)
		touched[op.Collection] = true
	}
	m.mu.Unlock()

	for collection := range touched {
		m.notify(collection)
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string, filters []Filter, onSnapshot SnapshotHandler, onError ErrorHandler) Unsubscribe {
	sub := &memorySub{filters: filters, onSnapshot: onSnapshot}

	m.mu.Lock()
	m.subs[collection] = append(m.subs[collection], sub)
	initial := m.queryLocked(collection, filters)
	m.mu.Unlock()

	// Initial delivery, like the first snapshot of a live query.
	onSnapshot(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			sub.closed = true
			m.mu.Unlock()
		})
	}
}

// apply mutates state; caller holds the write lock.
func (m *Memory) apply(op WriteOp) {
	col := m.data[op.Collection]
	if col == nil {
		col = make(map[string]Document)
		m.data[op.Collection] = col
	}

	switch op.Kind {
	case WriteSet:
		doc := make(Document, len(op.Fields))
		mergeFields(doc, op.Fields)
		col[op.Key] = doc
	case WriteUpdate:
		doc := col[op.Key]
		if doc == nil {
			doc = make(Document)
			col[op.Key] = doc
		}
		mergeFields(doc, op.Fields)
	case WriteDelete:
		delete(col, op.Key)
	}
}

func (m *Memory) queryLocked(collection string, filters []Filter) []Entry {
	var entries []Entry
	for key, doc := range m.data[collection] {
		if matches(doc, filters) {
			entries = append(entries, Entry{Key: key, Doc: doc.Clone()})
		}
	}
	return entries
}

func (m *Memory) notify(collection string) {
	m.mu.RLock()
	type delivery struct {
		handler SnapshotHandler
		entries []Entry
	}
	var deliveries []delivery
	for _, sub := range m.subs[collection] {
		if sub.closed {
			continue
		}
		deliveries = append(deliveries, delivery{sub.onSnapshot, m.queryLocked(collection, sub.filters)})
	}
	m.mu.RUnlock()

	for _, d := range deliveries {
		d.handler(d.entries)
	}
}

// mergeFields writes fields into doc, resolving transforms.
func mergeFields(doc Document, fields Document) {
	for key, value := range fields {
		switch t := value.(type) {
		case UnionTransform:
			doc[key] = arrayUnion(doc[key], t.Values)
		case RemoveTransform:
			doc[key] = arrayRemove(doc[key], t.Values)
		case IncTransform:
			doc[key] = asInt64(doc[key]) + t.Delta
		default:
			doc[key] = value
		}
	}
}

func arrayUnion(current any, values []any) []any {
	existing, _ := current.([]any)
	out := make([]any, len(existing))
	copy(out, existing)
	for _, v := range values {
		found := false
		for _, e := range out {
			if valuesEqual(e, v) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out
}

func arrayRemove(current any, values []any) []any {
	existing, _ := current.([]any)
	out := make([]any, 0, len(existing))
	for _, e := range existing {
		keep := true
		for _, v := range values {
			if valuesEqual(e, v) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}
	return out
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case OpEqual:
			if !valuesEqual(doc[f.Field], f.Value) {
				return false
			}
		case OpIn:
			candidates, _ := f.Value.([]any)
			found := false
			for _, c := range candidates {
				if valuesEqual(doc[f.Field], c) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case OpArrayContains:
			elems, _ := doc[f.Field].([]any)
			found := false
			for _, e := range elems {
				if valuesEqual(e, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return ai == bi
		}
		return false
	}
	return a == b
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func asInt64(v any) int64 {
	if n, ok := toInt64(v); ok {
		return n
	}
	return 0
}
