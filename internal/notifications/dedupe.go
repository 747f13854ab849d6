package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/redis"
)

const defaultDedupeTTL = 24 * time.Hour

// Dedupe marks events as processed in Redis so redelivered Pub/Sub messages
// do not mail the customer twice. The mark is released when handling fails,
// letting the redelivery retry.
type Dedupe struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewDedupe(store redis.IdempotencyStore, ttl time.Duration) *Dedupe {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &Dedupe{store: store, ttl: ttl}
}

// CheckAndMarkProcessed returns true when the event was already handled.
func (d *Dedupe) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key := d.store.IdempotencyKey(consumer, eventID.String())
	stored, err := d.store.SetNX(ctx, key, "1", d.ttl)
	if err != nil {
		return false, err
	}
	return !stored, nil
}

// Delete releases the processed mark.
func (d *Dedupe) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return d.store.Del(ctx, d.store.IdempotencyKey(consumer, eventID.String()))
}
