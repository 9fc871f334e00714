package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Journal is a redis-backed fast path for webhook deduplication. The state
// machine is already idempotent on (provider call id, status); the journal
// just lets handlers short-circuit provider retries without a store
// round-trip. It is best-effort: on redis failure callers should proceed as
// if the delivery were the first.
type Journal struct {
	RDB *redis.Client

	// TTL bounds how long a delivery is remembered. Provider retry windows
	// are minutes, so a day is generous.
	TTL time.Duration
}

func NewJournal(rdb *redis.Client) *Journal {
	return &Journal{RDB: rdb, TTL: 24 * time.Hour}
}

// FirstDelivery records the (call id, status) pair and reports whether this
// is the first time it has been seen.
func (j *Journal) FirstDelivery(ctx context.Context, providerCallID string, status Status) (bool, error) {
	if j == nil || j.RDB == nil {
		return true, nil
	}
	if providerCallID == "" || status == "" {
		return true, fmt.Errorf("session: journal requires call id and status")
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	key := fmt.Sprintf("webhook:seen:%s:%s", providerCallID, status)
	return j.RDB.SetNX(ctx, key, 1, ttl).Result()
}
