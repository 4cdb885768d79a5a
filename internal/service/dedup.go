package service

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduper is the in-process domain.AlertDeduper used when Redis is not
// configured. Its state is lost on restart. Safe for concurrent use.
type MemoryDeduper struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryDeduper creates an empty deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// MarkSent records key for ttl and reports whether it was new.
func (d *MemoryDeduper) MarkSent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	return true, nil
}

// Forget drops key.
func (d *MemoryDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	delete(d.expires, key)
	d.mu.Unlock()
	return nil
}

// Cleanup removes expired entries. Call it periodically to bound memory.
func (d *MemoryDeduper) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, exp := range d.expires {
		if !now.Before(exp) {
			delete(d.expires, key)
		}
	}
}

// Len returns the number of tracked keys, expired or not.
func (d *MemoryDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.expires)
}
