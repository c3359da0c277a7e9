package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"payment-dispatcher/internal/models"
)

const queueKey = "payments:queue"

// Queue is the durable dispatch queue, a Redis list drained FIFO: RPUSH on
// enqueue, BLPOP on dequeue. Requeued items go back to the tail so a payment
// failing against a downed processor does not head-block its own retries.
type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func (q *Queue) Enqueue(ctx context.Context, p models.PendingPayment) error {
	if err := q.rdb.RPush(ctx, queueKey, encodeItem(p)).Err(); err != nil {
		return fmt.Errorf("failed to enqueue payment: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for an item. An empty queue is (zero, false,
// nil), not an error. The pop itself is atomic on the store side, so no two
// callers can observe the same item.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (models.PendingPayment, bool, error) {
	res, err := q.rdb.BLPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PendingPayment{}, false, nil
		}
		return models.PendingPayment{}, false, fmt.Errorf("failed to pop from queue: %w", err)
	}

	// BLPOP replies [key, value].
	payment, err := decodeItem(res[1])
	if err != nil {
		return models.PendingPayment{}, false, err
	}
	return payment, true, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *Queue) Purge(ctx context.Context) error {
	if err := q.rdb.Del(ctx, queueKey).Err(); err != nil {
		return fmt.Errorf("failed to purge queue: %w", err)
	}
	return nil
}
