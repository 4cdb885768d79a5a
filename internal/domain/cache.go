package domain

import (
	"context"
	"time"
)

// AlertDeduper remembers which alerts were already delivered so frequent
// polling does not repeat them inside the cooldown window.
type AlertDeduper interface {
	// MarkSent records key and reports whether it was new. A false return
	// means the alert was already sent within ttl.
	MarkSent(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget drops a key so the next scan may send it again.
	Forget(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and capped durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	// StreamAppend adds payload to stream, trimming it to roughly maxLen
	// entries. maxLen <= 0 disables trimming.
	StreamAppend(ctx context.Context, stream string, maxLen int64, payload []byte) error
	// StreamLatest returns up to count entries, newest first.
	StreamLatest(ctx context.Context, stream string, count int) ([]StreamMessage, error)
}
