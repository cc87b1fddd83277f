package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type AttemptStatus string

const (
	AttemptIdle       AttemptStatus = "idle"
	AttemptSubmitting AttemptStatus = "submitting"
	AttemptSuccess    AttemptStatus = "success"
	AttemptFailed     AttemptStatus = "failed"
)

type Attempt struct {
	Key         string        `json:"key"`
	Status      AttemptStatus `json:"status"`
	OrderNumber string        `json:"order_number,omitempty"`
}

// AttemptTracker guards a checkout idempotency key against concurrent
// submissions: idle -> submitting -> success | failed. A failed key can be
// submitted again.
type AttemptTracker interface {
	// Begin moves key to submitting. It returns ErrSubmissionInProgress when
	// another attempt holds the key or already succeeded.
	Begin(ctx context.Context, key string) error
	Succeed(ctx context.Context, key, orderNumber string) error
	// Fail marks key failed for a while; Begin accepts it again.
	Fail(ctx context.Context, key string) error
	Status(ctx context.Context, key string) (Attempt, error)
}

type redisAttemptTracker struct {
	client     *redis.Client
	lockTTL    time.Duration
	successTTL time.Duration
	failedTTL  time.Duration
}

// NewRedisAttemptTracker keeps a submitting marker for lockTTL, long enough to
// cover every remote write of one checkout, a failure for 15 minutes and a
// success for a day.
func NewRedisAttemptTracker(client *redis.Client, lockTTL time.Duration) AttemptTracker {
	return &redisAttemptTracker{
		client:     client,
		lockTTL:    lockTTL,
		successTTL: 24 * time.Hour,
		failedTTL:  15 * time.Minute,
	}
}

func attemptKey(key string) string {
	return fmt.Sprintf("checkout:attempt:%s", key)
}

func (t *redisAttemptTracker) Begin(ctx context.Context, key string) error {
	k := attemptKey(key)
	data, _ := json.Marshal(Attempt{Key: key, Status: AttemptSubmitting})

	err := t.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readAttempt(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur.Status == AttemptSubmitting || cur.Status == AttemptSuccess {
			return ErrSubmissionInProgress
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, data, t.lockTTL)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSubmissionInProgress), errors.Is(err, redis.TxFailedErr):
		return ErrSubmissionInProgress
	default:
		return fmt.Errorf("begin checkout attempt: %w", err)
	}
}

func (t *redisAttemptTracker) Succeed(ctx context.Context, key, orderNumber string) error {
	data, _ := json.Marshal(Attempt{Key: key, Status: AttemptSuccess, OrderNumber: orderNumber})

	if err := t.client.Set(ctx, attemptKey(key), data, t.successTTL).Err(); err != nil {
		return fmt.Errorf("record checkout success: %w", err)
	}
	return nil
}

func (t *redisAttemptTracker) Fail(ctx context.Context, key string) error {
	data, _ := json.Marshal(Attempt{Key: key, Status: AttemptFailed})

	if err := t.client.Set(ctx, attemptKey(key), data, t.failedTTL).Err(); err != nil {
		return fmt.Errorf("record checkout failure: %w", err)
	}
	return nil
}

func (t *redisAttemptTracker) Status(ctx context.Context, key string) (Attempt, error) {
	return readAttempt(ctx, t.client, key)
}

type attemptReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// readAttempt reports idle for a key that was never used or has expired.
func readAttempt(ctx context.Context, c attemptReader, key string) (Attempt, error) {
	data, err := c.Get(ctx, attemptKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Attempt{Key: key, Status: AttemptIdle}, nil
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("read checkout attempt: %w", err)
	}

	var a Attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return Attempt{}, fmt.Errorf("decode checkout attempt: %w", err)
	}
	return a, nil
}
