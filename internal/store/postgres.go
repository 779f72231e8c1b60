package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresClient persists documents as JSONB rows and fans snapshots
// out through a ChangeNotifier, so every connected process re-delivers
// the full ordered result set after each committed mutation.
type PostgresClient struct {
	pool     *pgxpool.Pool
	notifier ChangeNotifier
	logger   *zap.Logger
}

// NewPostgresClient builds a Client over an existing pool.
func NewPostgresClient(pool *pgxpool.Pool, notifier ChangeNotifier, logger *zap.Logger) *PostgresClient {
	return &PostgresClient{pool: pool, notifier: notifier, logger: logger}
}

// GetDocument reads one document.
func (c *PostgresClient) GetDocument(ctx context.Context, path, docID string) (Document, error) {
	const query = `SELECT id, created_at, fields FROM documents WHERE path=$1 AND id=$2`
	return scanDocument(c.pool.QueryRow(ctx, query, path, docID))
}

// CreateDocument stores a new document with a server-assigned timestamp.
func (c *PostgresClient) CreateDocument(ctx context.Context, path string, fields map[string]any) (Document, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("encode fields: %w", err)
	}
	doc := Document{ID: uuid.NewString(), Fields: fields}
	const query = `
        INSERT INTO documents (path, id, fields)
        VALUES ($1, $2, $3)
        RETURNING created_at`
	if err := c.pool.QueryRow(ctx, query, path, doc.ID, payload).Scan(&doc.CreatedAt); err != nil {
		return Document{}, err
	}
	c.notify(ctx, path)
	return doc, nil
}

// UpdateFields atomically merges fields into a document.
func (c *PostgresClient) UpdateFields(ctx context.Context, path, docID string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	const query = `UPDATE documents SET fields = fields || $3::jsonb WHERE path=$1 AND id=$2`
	cmd, err := c.pool.Exec(ctx, query, path, docID, payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	c.notify(ctx, path)
	return nil
}

// UpdateFieldsIf merges fields under a row lock only when every
// expected prior value still holds.
func (c *PostgresClient) UpdateFieldsIf(ctx context.Context, path, docID string, expect, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var raw []byte
	const selectQuery = `SELECT fields FROM documents WHERE path=$1 AND id=$2 FOR UPDATE`
	if err := tx.QueryRow(ctx, selectQuery, path, docID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	current := map[string]any{}
	if err := json.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	for key, expected := range expect {
		if !FieldEquals(current[key], expected) {
			return ErrCasConflict
		}
	}

	const updateQuery = `UPDATE documents SET fields = fields || $3::jsonb WHERE path=$1 AND id=$2`
	if _, err := tx.Exec(ctx, updateQuery, path, docID, payload); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	c.notify(ctx, path)
	return nil
}

// IncrementField adds delta to a numeric field in a single statement,
// so concurrent increments from independent clients compose.
func (c *PostgresClient) IncrementField(ctx context.Context, path, docID, field string, delta int64) error {
	const query = `
        UPDATE documents
        SET fields = jsonb_set(fields, ARRAY[$3],
            to_jsonb(COALESCE((fields->>$3)::bigint, 0) + $4))
        WHERE path=$1 AND id=$2`
	cmd, err := c.pool.Exec(ctx, query, path, docID, field, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	c.notify(ctx, path)
	return nil
}

// DeleteDocument removes a document; deleting twice is a no-op.
func (c *PostgresClient) DeleteDocument(ctx context.Context, path, docID string) error {
	const query = `DELETE FROM documents WHERE path=$1 AND id=$2`
	cmd, err := c.pool.Exec(ctx, query, path, docID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		c.notify(ctx, path)
	}
	return nil
}

// AppendToSubcollection stores a record under a parent document.
func (c *PostgresClient) AppendToSubcollection(ctx context.Context, parentPath, parentID, sub string, fields map[string]any) (Document, error) {
	return c.CreateDocument(ctx, SubcollectionPath(parentPath, parentID, sub), fields)
}

func (c *PostgresClient) notify(ctx context.Context, path string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Publish(ctx, path); err != nil {
		c.logger.Warn("change notification failed", zap.String("path", path), zap.Error(err))
	}
}

type postgresSubscription struct {
	ch       chan Snapshot
	stopOnce sync.Once
	stop     func()
}

func (s *postgresSubscription) Snapshots() <-chan Snapshot { return s.ch }

func (s *postgresSubscription) Unsubscribe() { s.stopOnce.Do(s.stop) }

// Subscribe opens a live feed: the current result set immediately, then
// a fresh full query after every change signal for the path.
func (c *PostgresClient) Subscribe(ctx context.Context, query Query) (Subscription, error) {
	if c.notifier == nil {
		return nil, errors.New("postgres store requires a change notifier for subscriptions")
	}
	signals, stopListen, err := c.notifier.Listen(ctx, query.Path)
	if err != nil {
		return nil, err
	}

	initial, err := c.queryAll(ctx, query)
	if err != nil {
		stopListen()
		return nil, err
	}

	sub := &postgresSubscription{
		ch:   make(chan Snapshot, 1),
		stop: stopListen,
	}
	sub.ch <- Snapshot{Seq: 1, Docs: initial}

	go func() {
		defer close(sub.ch)
		seq := uint64(1)
		for {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				docs, err := c.queryAll(ctx, query)
				if err != nil {
					c.logger.Warn("snapshot refresh failed",
						zap.String("path", query.Path), zap.Error(err))
					continue
				}
				seq++
				// Coalesce: replace any undelivered snapshot.
				select {
				case <-sub.ch:
				default:
				}
				sub.ch <- Snapshot{Seq: seq, Docs: docs}
			}
		}
	}()

	return sub, nil
}

func (c *PostgresClient) queryAll(ctx context.Context, query Query) ([]Document, error) {
	direction := "ASC"
	if query.Descending {
		direction = "DESC"
	}
	stmt := fmt.Sprintf(`
        SELECT id, created_at, fields FROM documents
        WHERE path=$1 ORDER BY created_at %s, ord %s`, direction, direction)
	rows, err := c.pool.Query(ctx, stmt, query.Path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc Document
		raw []byte
		ts  time.Time
	)
	if err := row.Scan(&doc.ID, &ts, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.CreatedAt = ts
	doc.Fields = map[string]any{}
	if err := json.Unmarshal(raw, &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("decode fields: %w", err)
	}
	return doc, nil
}
