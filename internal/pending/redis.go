package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/tabsettle/internal/models"
)

var _ Index = (*RedisIndex)(nil)

// RedisIndex keeps one list per sender under "pendingTx:{sender}".
// Each push refreshes the key TTL; per-entry ExpiresAt is filtered on read.
type RedisIndex struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisIndex wraps an existing client. ttl is the key expiry applied on every push.
func NewRedisIndex(client *redis.Client, ttl time.Duration) *RedisIndex {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisIndex{client: client, ttl: ttl, now: time.Now}
}

// encode produces the exact list element used for both RPUSH and LREM.
func encode(e models.PendingTransfer) (string, error) {
	e.ExpiresAt = e.ExpiresAt.UTC()
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to encode pending transfer: %w", err)
	}
	return string(b), nil
}

func (r *RedisIndex) Add(ctx context.Context, entries ...models.PendingTransfer) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	touched := make(map[string]bool)
	for _, e := range entries {
		payload, err := encode(e)
		if err != nil {
			return err
		}
		k := keyFor(e.Sender)
		pipe.RPush(ctx, k, payload)
		touched[k] = true
	}
	for k := range touched {
		pipe.Expire(ctx, k, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push pending transfers: %w", err)
	}
	return nil
}

func (r *RedisIndex) List(ctx context.Context, sender string) ([]models.PendingTransfer, error) {
	k := keyFor(sender)
	raw, err := r.client.LRange(ctx, k, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending transfers: %w", err)
	}

	now := r.now()
	out := make([]models.PendingTransfer, 0, len(raw))
	for _, item := range raw {
		var e models.PendingTransfer
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			slog.Warn("Dropping undecodable pending transfer", "key", k, "error", err)
			r.client.LRem(ctx, k, 1, item)
			continue
		}
		if e.Expired(now) {
			r.client.LRem(ctx, k, 1, item)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisIndex) Remove(ctx context.Context, entry models.PendingTransfer) (bool, error) {
	payload, err := encode(entry)
	if err != nil {
		return false, err
	}
	n, err := r.client.LRem(ctx, keyFor(entry.Sender), 1, payload).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove pending transfer: %w", err)
	}
	return n > 0, nil
}

// Purge is a no-op: expired keys are dropped by Redis and expired entries by List.
func (r *RedisIndex) Purge(context.Context, time.Time) (int, error) {
	return 0, nil
}
