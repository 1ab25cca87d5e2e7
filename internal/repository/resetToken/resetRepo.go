package resetToken

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTokenNotFound = errors.New("reset token not found or expired")

// ResetTokenRepo stores one-time password-reset tokens. The token value is
// the key so a token can be consumed without knowing the user it belongs to.
type ResetTokenRepo struct {
	Client *redis.Client
}

func New(client *redis.Client) *ResetTokenRepo {
	return &ResetTokenRepo{Client: client}
}

func (r *ResetTokenRepo) buildKey(token string) string {
	return fmt.Sprintf("reset:%s", token)
}

func (r *ResetTokenRepo) SaveToken(ctx context.Context, token string, userID uint32, ttl time.Duration) error {
	key := r.buildKey(token)
	return r.Client.Set(ctx, key, strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

// ConsumeToken returns the owning user id and deletes the token in one step,
// so a token can only be redeemed once.
func (r *ResetTokenRepo) ConsumeToken(ctx context.Context, token string) (uint32, error) {
	key := r.buildKey(token)
	val, err := r.Client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("corrupt reset token entry: %w", err)
	}
	return uint32(userID), nil
}
