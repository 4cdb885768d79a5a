package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// AlertDeduper implements domain.AlertDeduper with one TTL-bound key per
// alert. The key expiring is what re-arms an alert.
type AlertDeduper struct {
	rdb *redis.Client
}

// NewAlertDeduper creates an AlertDeduper backed by the given Client.
func NewAlertDeduper(c *Client) *AlertDeduper {
	return &AlertDeduper{rdb: c.Underlying()}
}

func alertKey(key string) string {
	return keyPrefix + "alert:" + key
}

// MarkSent records key for ttl and reports whether it was not already there.
func (d *AlertDeduper) MarkSent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	fresh, err := d.rdb.SetNX(ctx, alertKey(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark alert %s: %w", key, err)
	}
	return fresh, nil
}

// Forget removes key, typically after the notification failed to go out.
func (d *AlertDeduper) Forget(ctx context.Context, key string) error {
	if err := d.rdb.Del(ctx, alertKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: forget alert %s: %w", key, err)
	}
	return nil
}

var _ domain.AlertDeduper = (*AlertDeduper)(nil)
