package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	pkgredis "github.com/graybeam/storefront-backend/pkg/redis"
)

// GuestStore persists guest carts as JSON blobs in Redis, keyed by the
// opaque guest token the client carries. The TTL keeps abandoned guest
// carts from accumulating.
type GuestStore struct {
	client *pkgredis.Client
	ttl    time.Duration
}

// NewGuestStore builds the Redis-backed guest cart store.
func NewGuestStore(client *pkgredis.Client, ttl time.Duration) *GuestStore {
	return &GuestStore{client: client, ttl: ttl}
}

// Get loads the guest snapshot. A missing key yields an empty cart, not an
// error, since a guest without a stored cart is a normal state.
func (g *GuestStore) Get(ctx context.Context, guestToken string) (Snapshot, error) {
	raw, err := g.client.Get(ctx, g.client.GuestCartKey(guestToken))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, nil
		}
		return Snapshot{}, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		// A corrupt blob is unrecoverable; start the guest over.
		return Snapshot{}, nil
	}
	snapshot.Recompute()
	return snapshot, nil
}

// Save writes the snapshot, refreshing the TTL on every mutation.
func (g *GuestStore) Save(ctx context.Context, guestToken string, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return g.client.Set(ctx, g.client.GuestCartKey(guestToken), payload, g.ttl)
}

// Delete removes the guest cart, typically after a merge on login.
func (g *GuestStore) Delete(ctx context.Context, guestToken string) error {
	return g.client.Del(ctx, g.client.GuestCartKey(guestToken))
}
