package docstore

import (
	"context"
	"errors"
)

// BatchLimit is the maximum number of writes accepted by a single BatchCommit.
const BatchLimit = 500

var (
	ErrNotFound      = errors.New("document not found")
	ErrBatchTooLarge = errors.New("batch exceeds write limit")
)

// Op is a query filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpIn            Op = "in"
	OpArrayContains Op = "array-contains"
)

// Filter restricts a query or subscription to matching documents.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a query filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Entry is one document in a query result, paired with its key.
type Entry struct {
	Key string
	Doc Document
}

// WriteKind discriminates batched write operations.
type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteUpdate
	WriteDelete
)

// WriteOp is a single operation inside a BatchCommit.
type WriteOp struct {
	Kind       WriteKind
	Collection string
	Key        string
	Fields     Document
}

// SetOp builds a batched upsert.
func SetOp(collection, key string, fields Document) WriteOp {
	return WriteOp{Kind: WriteSet, Collection: collection, Key: key, Fields: fields}
}

// UpdateOp builds a batched merge update.
func UpdateOp(collection, key string, fields Document) WriteOp {
	return WriteOp{Kind: WriteUpdate, Collection: collection, Key: key, Fields: fields}
}

// DeleteOp builds a batched delete.
func DeleteOp(collection, key string) WriteOp {
	return WriteOp{Kind: WriteDelete, Collection: collection, Key: key}
}

// Unsubscribe tears down a live query. Safe to call more than once.
type Unsubscribe func()

// SnapshotHandler receives the full matching result set on every change.
// Deliveries are at-least-once: the same state may arrive repeatedly.
type SnapshotHandler func(entries []Entry)

// ErrorHandler receives a terminal subscription error. The subscription is
// dead after the callback; reconnecting is the caller's policy.
type ErrorHandler func(err error)

// Store is the document-database boundary the engine talks to. Set and Update
// are upserts; Delete and Update of a missing document follow delete-if-exists
// semantics and are not errors. No transaction spans multiple collections:
// BatchCommit is atomic only within one collection's document set and rejects
// batches above BatchLimit.
type Store interface {
	Get(ctx context.Context, collection, key string) (Document, error)
	Set(ctx context.Context, collection, key string, doc Document) error
	Update(ctx context.Context, collection, key string, fields Document) error
	Delete(ctx context.Context, collection, key string) error
	Query(ctx context.Context, collection string, filters ...Filter) ([]Entry, error)
	BatchCommit(ctx context.Context, ops []WriteOp) error
	Subscribe(ctx context.Context, collection string, filters []Filter, onSnapshot SnapshotHandler, onError ErrorHandler) Unsubscribe
}
