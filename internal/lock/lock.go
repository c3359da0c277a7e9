package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKey = "payments:dispatch_lock"

// releaseScript deletes the lease only while it still belongs to the caller.
// Running it server-side closes the get-then-delete race: a worker whose
// lease expired and was reclaimed cannot delete the new owner's lease.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock is a lease-based mutex over the store's conditional set. Ownership is
// proven by token equality; the store enforces the TTL, so a crashed holder
// is recovered without any cleanup path.
type Lock struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Lock {
	return &Lock{rdb: rdb}
}

// TryAcquire succeeds only if no unexpired lease exists. A false return is
// contention, not an error.
func (l *Lock) TryAcquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	acquired, err := l.rdb.SetNX(ctx, lockKey, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire dispatch lock: %w", err)
	}
	return acquired, nil
}

func (l *Lock) Release(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{lockKey}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release dispatch lock: %w", err)
	}
	return nil
}
