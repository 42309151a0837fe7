package kitchen

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	flushKeyPrefix = "flush:"
	flushKeyTTL    = 24 * time.Hour
)

// FlushJournal remembers which flush fingerprints have already been published,
// so a retried flush whose first publish actually succeeded does not reach
// the kitchen twice.
type FlushJournal struct {
	client *redis.Client
}

func NewFlushJournal(client *redis.Client) *FlushJournal {
	return &FlushJournal{client: client}
}

// FirstSeen returns true when this fingerprint has not been published before.
func (j *FlushJournal) FirstSeen(ctx context.Context, fingerprint string) (bool, error) {
	return j.client.SetNX(ctx, flushKeyPrefix+fingerprint, 1, flushKeyTTL).Result()
}

// Forget releases a fingerprint reserved by FirstSeen. Called when the
// publish that followed the reservation failed, so a retry can go through.
func (j *FlushJournal) Forget(ctx context.Context, fingerprint string) error {
	return j.client.Del(ctx, flushKeyPrefix+fingerprint).Err()
}
