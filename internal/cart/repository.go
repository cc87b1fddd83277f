package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"petcare-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Repository persists one cart document per owner.
type Repository interface {
	// Load returns an empty cart when nothing is stored and ErrCorruptCart
	// when the stored document cannot be decoded.
	Load(ctx context.Context, owner string) (State, error)
	Save(ctx context.Context, owner string, state State) error
	Delete(ctx context.Context, owner string) error
}

type redisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) Repository {
	return &redisRepository{client: client, ttl: ttl}
}

func cacheKey(owner string) string {
	return fmt.Sprintf("cart:%s", owner)
}

func (r *redisRepository) Load(ctx context.Context, owner string) (State, error) {
	data, err := r.client.Get(ctx, cacheKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Empty(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrFailedLoad, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrCorruptCart, err)
	}

	return state, nil
}

// Save refreshes the TTL on every write so active carts never expire.
func (r *redisRepository) Save(ctx context.Context, owner string, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(owner), data, r.ttl).Err(); err != nil {
		logger.ForLayer(ctx, "repository", "Save").Error("redis set failed",
			zap.String("owner", owner),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrFailedSave, err)
	}
	return nil
}

func (r *redisRepository) Delete(ctx context.Context, owner string) error {
	if err := r.client.Del(ctx, cacheKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
