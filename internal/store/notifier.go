package store

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChangeNotifier fans change notifications out across processes. The
// postgres backend publishes the affected path after every committed
// mutation; each subscriber re-queries and republishes a full snapshot.
type ChangeNotifier interface {
	Publish(ctx context.Context, path string) error
	// Listen yields a signal per change to the given path. The returned
	// stop function releases the underlying listener; it is safe to
	// call more than once.
	Listen(ctx context.Context, path string) (<-chan struct{}, func(), error)
}

// RedisNotifier implements ChangeNotifier over Redis pub/sub.
// Reconnection after transient failures is delegated to go-redis.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisNotifier wraps an existing Redis client.
func NewRedisNotifier(client *redis.Client, prefix string, logger *zap.Logger) *RedisNotifier {
	if prefix == "" {
		prefix = "docstore"
	}
	return &RedisNotifier{client: client, prefix: prefix, logger: logger}
}

func (n *RedisNotifier) channel(path string) string {
	return n.prefix + ":" + path
}

// Publish signals that documents under path changed.
func (n *RedisNotifier) Publish(ctx context.Context, path string) error {
	return n.client.Publish(ctx, n.channel(path), "1").Err()
}

// Listen subscribes to change signals for path.
func (n *RedisNotifier) Listen(ctx context.Context, path string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel(path))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	signals := make(chan struct{}, 1)
	go func() {
		defer close(signals)
		for range pubsub.Channel() {
			// Coalesce: a pending signal already covers this change.
			select {
			case signals <- struct{}{}:
			default:
			}
		}
	}()

	stop := func() {
		if err := pubsub.Close(); err != nil {
			n.logger.Debug("pubsub close", zap.Error(err))
		}
	}
	return signals, stop, nil
}
