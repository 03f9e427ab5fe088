package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrResetUnavailable is returned when password reset storage is not configured.
var ErrResetUnavailable = errors.New("password reset storage unavailable")

const resetKeyPrefix = "reset:"

// ResetTokenRepository stores single-use password reset tokens in Redis, keyed by token hash.
type ResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository constructs a ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *ResetTokenRepository {
	return &ResetTokenRepository{client: client}
}

// Save maps tokenHash to userID for ttl.
func (r *ResetTokenRepository) Save(ctx context.Context, tokenHash, userID string, ttl time.Duration) error {
	if r.client == nil {
		return ErrResetUnavailable
	}
	if err := r.client.Set(ctx, resetKeyPrefix+tokenHash, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the token. Unknown or expired tokens yield redis.Nil.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string) (string, error) {
	if r.client == nil {
		return "", ErrResetUnavailable
	}
	userID, err := r.client.GetDel(ctx, resetKeyPrefix+tokenHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", err
		}
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return userID, nil
}
