package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryClient is an in-process Client used by tests and the
// single-node development backend. It is the reference implementation
// of the snapshot contract: every mutation republishes the entire
// ordered result set to each subscriber of the affected path.
type MemoryClient struct {
	mu          sync.Mutex
	collections map[string]map[string]memoryDoc
	subs        map[string]map[int]*memorySubscription
	nextSubID   int
	nextOrd     uint64
}

type memoryDoc struct {
	doc Document
	ord uint64
}

// NewMemoryClient creates an empty in-memory store.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		collections: make(map[string]map[string]memoryDoc),
		subs:        make(map[string]map[int]*memorySubscription),
	}
}

type memorySubscription struct {
	query  Query
	ch     chan Snapshot
	seq    uint64
	closed bool
	cancel func()
}

func (s *memorySubscription) Snapshots() <-chan Snapshot { return s.ch }

func (s *memorySubscription) Unsubscribe() { s.cancel() }

// Subscribe registers a live feed and immediately delivers the current
// result set.
func (c *MemoryClient) Subscribe(ctx context.Context, query Query) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++

	sub := &memorySubscription{
		query: query,
		ch:    make(chan Snapshot, 1),
	}
	sub.cancel = func() { c.removeSub(query.Path, id) }

	if c.subs[query.Path] == nil {
		c.subs[query.Path] = make(map[int]*memorySubscription)
	}
	c.subs[query.Path][id] = sub

	c.deliverLocked(sub)
	return sub, nil
}

func (c *MemoryClient) removeSub(path string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[path][id]
	if !ok || sub.closed {
		return
	}
	sub.closed = true
	delete(c.subs[path], id)
	close(sub.ch)
}

// deliverLocked pushes the current ordered set to one subscriber,
// replacing any undelivered snapshot so the consumer always observes
// the latest committed state.
func (c *MemoryClient) deliverLocked(sub *memorySubscription) {
	if sub.closed {
		return
	}
	sub.seq++
	snapshot := Snapshot{Seq: sub.seq, Docs: c.orderedLocked(sub.query)}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- snapshot
}

func (c *MemoryClient) broadcastLocked(path string) {
	for _, sub := range c.subs[path] {
		c.deliverLocked(sub)
	}
}

func (c *MemoryClient) orderedLocked(query Query) []Document {
	col := c.collections[query.Path]
	entries := make([]memoryDoc, 0, len(col))
	for _, entry := range col {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		less := a.ord < b.ord
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			less = a.doc.CreatedAt.Before(b.doc.CreatedAt)
		}
		if query.Descending {
			return !less
		}
		return less
	})
	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		docs = append(docs, cloneDocument(entry.doc))
	}
	return docs
}

func cloneDocument(doc Document) Document {
	clone := doc
	clone.Fields = maps.Clone(doc.Fields)
	return clone
}

// GetDocument reads one document.
func (c *MemoryClient) GetDocument(ctx context.Context, path, docID string) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.collections[path][docID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(entry.doc), nil
}

// CreateDocument stores a new document with a fresh ID and timestamp.
func (c *MemoryClient) CreateDocument(ctx context.Context, path string, fields map[string]any) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := Document{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Fields:    maps.Clone(fields),
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	if c.collections[path] == nil {
		c.collections[path] = make(map[string]memoryDoc)
	}
	c.nextOrd++
	c.collections[path][doc.ID] = memoryDoc{doc: doc, ord: c.nextOrd}
	c.broadcastLocked(path)
	return cloneDocument(doc), nil
}

// UpdateFields merges fields into an existing document.
func (c *MemoryClient) UpdateFields(ctx context.Context, path, docID string, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.collections[path][docID]
	if !ok {
		return ErrNotFound
	}
	for key, value := range fields {
		entry.doc.Fields[key] = value
	}
	c.collections[path][docID] = entry
	c.broadcastLocked(path)
	return nil
}

// UpdateFieldsIf merges fields only when the expected prior values hold.
func (c *MemoryClient) UpdateFieldsIf(ctx context.Context, path, docID string, expect, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.collections[path][docID]
	if !ok {
		return ErrNotFound
	}
	for key, expected := range expect {
		if !FieldEquals(entry.doc.Fields[key], expected) {
			return ErrCasConflict
		}
	}
	for key, value := range fields {
		entry.doc.Fields[key] = value
	}
	c.collections[path][docID] = entry
	c.broadcastLocked(path)
	return nil
}

// IncrementField adds delta to a numeric field, treating absence as zero.
func (c *MemoryClient) IncrementField(ctx context.Context, path, docID, field string, delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.collections[path][docID]
	if !ok {
		return ErrNotFound
	}
	entry.doc.Fields[field] = int64(numeric(entry.doc.Fields[field])) + delta
	c.collections[path][docID] = entry
	c.broadcastLocked(path)
	return nil
}

// DeleteDocument removes a document; deleting twice is a no-op.
func (c *MemoryClient) DeleteDocument(ctx context.Context, path, docID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.collections[path][docID]; !ok {
		return nil
	}
	delete(c.collections[path], docID)
	c.broadcastLocked(path)
	return nil
}

// AppendToSubcollection stores a record under a parent document.
func (c *MemoryClient) AppendToSubcollection(ctx context.Context, parentPath, parentID, sub string, fields map[string]any) (Document, error) {
	return c.CreateDocument(ctx, SubcollectionPath(parentPath, parentID, sub), fields)
}
