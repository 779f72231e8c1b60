package reconcile

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/store"
)

// IssuesPath is the collection every issue document lives in.
const IssuesPath = "issues"

// MessagesSub is the per-issue message subcollection name.
const MessagesSub = "messages"

// Reconciler owns store subscriptions and republishes consistent
// full-collection snapshots to any number of consumer scopes. Exactly
// one store subscription exists per distinct query no matter how many
// scopes are attached; the subscription is released when the last
// scope closes.
type Reconciler struct {
	client store.Client
	logger *zap.Logger

	mu    sync.Mutex
	feeds map[string]*feed
}

// New builds a Reconciler over the given store client.
func New(client store.Client, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		client: client,
		logger: logger,
		feeds:  make(map[string]*feed),
	}
}

type feed struct {
	query     store.Query
	sub       store.Subscription
	consumers map[int]chan store.Snapshot
	nextID    int
	current   *store.Snapshot
}

// Scope is one consumer's live view of a query. Callers must Close it
// on scope exit, including error exit; Close is idempotent.
type Scope struct {
	ch        chan store.Snapshot
	closeOnce sync.Once
	release   func()
}

// Snapshots yields each republished snapshot. Delivery coalesces: a
// consumer that falls behind observes the latest snapshot, never a
// partially-updated or stale intermediate list.
func (s *Scope) Snapshots() <-chan store.Snapshot { return s.ch }

// Close releases the scope, and the underlying store subscription when
// this was the last scope attached to its query.
func (s *Scope) Close() { s.closeOnce.Do(s.release) }

func queryKey(query store.Query) string {
	if query.Descending {
		return query.Path + "|desc"
	}
	return query.Path + "|asc"
}

// Attach opens a consumer scope for the query, subscribing to the
// store on first use. The latest known snapshot, if any, is delivered
// immediately.
func (r *Reconciler) Attach(ctx context.Context, query store.Query) (*Scope, error) {
	key := queryKey(query)

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.feeds[key]
	if !ok {
		sub, err := r.client.Subscribe(ctx, query)
		if err != nil {
			return nil, err
		}
		f = &feed{
			query:     query,
			sub:       sub,
			consumers: make(map[int]chan store.Snapshot),
		}
		r.feeds[key] = f
		go r.pump(key, f)
	}

	id := f.nextID
	f.nextID++
	ch := make(chan store.Snapshot, 1)
	f.consumers[id] = ch
	if f.current != nil {
		ch <- *f.current
	}

	scope := &Scope{ch: ch}
	scope.release = func() { r.detach(key, id) }
	return scope, nil
}

// Issues attaches to the issue collection, newest first.
func (r *Reconciler) Issues(ctx context.Context) (*Scope, error) {
	return r.Attach(ctx, store.Query{Path: IssuesPath, Descending: true})
}

// Messages attaches to one issue's message channel, oldest first.
func (r *Reconciler) Messages(ctx context.Context, issueID string) (*Scope, error) {
	path := store.SubcollectionPath(IssuesPath, issueID, MessagesSub)
	return r.Attach(ctx, store.Query{Path: path})
}

// pump republishes every store snapshot to all attached consumers.
// Each consumer channel holds at most the latest snapshot.
func (r *Reconciler) pump(key string, f *feed) {
	for snapshot := range f.sub.Snapshots() {
		r.mu.Lock()
		f.current = &snapshot
		for _, ch := range f.consumers {
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
		r.mu.Unlock()
	}

	// Subscription ended; drop any consumers still attached.
	r.mu.Lock()
	if r.feeds[key] == f {
		delete(r.feeds, key)
	}
	for id, ch := range f.consumers {
		delete(f.consumers, id)
		close(ch)
	}
	r.mu.Unlock()
}

func (r *Reconciler) detach(key string, id int) {
	r.mu.Lock()
	f, ok := r.feeds[key]
	if !ok {
		r.mu.Unlock()
		return
	}
	ch, ok := f.consumers[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(f.consumers, id)
	close(ch)
	last := len(f.consumers) == 0
	if last {
		delete(r.feeds, key)
	}
	r.mu.Unlock()

	if last {
		// Released outside the lock: the pump drains the closing
		// subscription channel and needs the lock to finish.
		f.sub.Unsubscribe()
	}
}
