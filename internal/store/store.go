package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the addressed document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrCasConflict indicates a conditional write whose expected prior
// field values no longer matched the stored document.
var ErrCasConflict = errors.New("conditional write conflict")

// Document is one stored record. CreatedAt is server-assigned and
// immutable; it defines the ordering of every snapshot.
type Document struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
}

// Snapshot is the complete ordered result set for a subscribed query.
// The store delivers a full replacement on every relevant mutation,
// never an incremental diff. Seq increases with each delivery within
// one subscription.
type Snapshot struct {
	Seq  uint64
	Docs []Document
}

// Query addresses a collection and its snapshot ordering.
type Query struct {
	// Path names a collection ("issues") or a subcollection
	// ("issues/<id>/messages").
	Path string
	// Descending orders snapshots newest-first when true, oldest-first
	// otherwise. Ordering is always by creation time.
	Descending bool
}

// Subscription is a live feed of snapshots for one query. Callers must
// eventually call Unsubscribe; delivery is coalescing, so a slow
// consumer observes the latest committed state rather than every
// intermediate one.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Unsubscribe()
}

// Client is the document store consumed by the core. Implementations
// must guarantee full-replace snapshot semantics, commutative
// increments, and server-assigned creation timestamps.
type Client interface {
	// Subscribe opens a live feed. The current result set is delivered
	// immediately as the first snapshot.
	Subscribe(ctx context.Context, query Query) (Subscription, error)

	// GetDocument reads one document.
	GetDocument(ctx context.Context, path, docID string) (Document, error)

	// CreateDocument stores a new document with a server-assigned ID
	// and creation timestamp.
	CreateDocument(ctx context.Context, path string, fields map[string]any) (Document, error)

	// UpdateFields atomically merges the given fields into a document.
	UpdateFields(ctx context.Context, path, docID string, fields map[string]any) error

	// UpdateFieldsIf merges fields only when every field named in
	// expect currently holds the given value (missing fields compare
	// equal to nil, false and zero). Returns ErrCasConflict otherwise.
	UpdateFieldsIf(ctx context.Context, path, docID string, expect, fields map[string]any) error

	// IncrementField atomically adds delta to a numeric field, treating
	// an absent field as zero. Concurrent increments compose.
	IncrementField(ctx context.Context, path, docID, field string, delta int64) error

	// DeleteDocument removes a document. Deleting a document that does
	// not exist is a no-op.
	DeleteDocument(ctx context.Context, path, docID string) error

	// AppendToSubcollection stores a new record under a parent
	// document's subcollection with a server-assigned timestamp.
	AppendToSubcollection(ctx context.Context, parentPath, parentID, sub string, fields map[string]any) (Document, error)
}

// SubcollectionPath builds the path of a subcollection under a parent
// document, e.g. issues/<id>/messages.
func SubcollectionPath(parentPath, parentID, sub string) string {
	return parentPath + "/" + parentID + "/" + sub
}

// FieldEquals compares a stored field value against an expected one,
// normalizing numeric representations and treating absent values as
// their zero equivalents.
func FieldEquals(stored, expected any) bool {
	if stored == nil {
		switch e := expected.(type) {
		case nil:
			return true
		case bool:
			return !e
		case string:
			return e == ""
		default:
			return numeric(expected) == 0 && isNumeric(expected)
		}
	}
	if isNumeric(stored) && isNumeric(expected) {
		return numeric(stored) == numeric(expected)
	}
	return stored == expected
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
