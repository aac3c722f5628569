package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository handles refresh token persistence in Redis. Keys carry
// the token lifetime as their TTL, so expired tokens disappear without a
// cleanup job.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func tokenKey(tokenHash string) string {
	return fmt.Sprintf("refresh_token:%s", tokenHash)
}

func revokedKey(tokenHash string) string {
	return fmt.Sprintf("refresh_token:revoked:%s", tokenHash)
}

func userTokensKey(username string) string {
	return fmt.Sprintf("user_tokens:%s", username)
}

// Store persists a refresh token bound to the issuing username, with TTL.
func (r *RedisRepository) Store(ctx context.Context, username, token string, expiresAt time.Time) error {
	tokenHash := hashToken(token)

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token expiration time is in the past")
	}

	pipe := r.client.Pipeline()

	pipe.HSet(ctx, tokenKey(tokenHash), map[string]interface{}{
		"username":   username,
		"expires_at": expiresAt.Unix(),
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, tokenKey(tokenHash), ttl)

	// Track the user's tokens so RevokeAllForUser can find them
	pipe.SAdd(ctx, userTokensKey(username), tokenHash)
	pipe.Expire(ctx, userTokensKey(username), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// Get retrieves a refresh token by value. Unknown tokens, revoked tokens
// and expired tokens each fail with their own sentinel.
func (r *RedisRepository) Get(ctx context.Context, token string) (*RefreshToken, error) {
	tokenHash := hashToken(token)

	revoked, err := r.client.Exists(ctx, revokedKey(tokenHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked > 0 {
		return nil, ErrRefreshTokenRevoked
	}

	data, err := r.client.HGetAll(ctx, tokenKey(tokenHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrRefreshTokenNotFound
	}

	var expiresAtUnix, createdAtUnix int64
	fmt.Sscanf(data["expires_at"], "%d", &expiresAtUnix)
	fmt.Sscanf(data["created_at"], "%d", &createdAtUnix)
	expiresAt := time.Unix(expiresAtUnix, 0)

	// Redis TTL normally removes expired tokens; the explicit check covers
	// the window between expiry and eviction.
	if time.Now().After(expiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	return &RefreshToken{
		Username:  data["username"],
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Unix(createdAtUnix, 0),
		RevokedAt: nil,
	}, nil
}

// Revoke marks a refresh token as revoked for the remainder of its lifetime.
func (r *RedisRepository) Revoke(ctx context.Context, token string) error {
	tokenHash := hashToken(token)

	exists, err := r.client.Exists(ctx, tokenKey(tokenHash)).Result()
	if err != nil {
		return fmt.Errorf("failed to check token existence: %w", err)
	}
	if exists == 0 {
		return ErrRefreshTokenNotFound
	}

	ttl, err := r.client.TTL(ctx, tokenKey(tokenHash)).Result()
	if err != nil {
		return fmt.Errorf("failed to get token TTL: %w", err)
	}

	if ttl > 0 {
		err = r.client.Set(ctx, revokedKey(tokenHash), "1", ttl).Err()
	} else {
		err = r.client.Set(ctx, revokedKey(tokenHash), "1", 7*24*time.Hour).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every refresh token issued to a username.
func (r *RedisRepository) RevokeAllForUser(ctx context.Context, username string) error {
	tokenHashes, err := r.client.SMembers(ctx, userTokensKey(username)).Result()
	if err != nil {
		return fmt.Errorf("failed to get user tokens: %w", err)
	}
	if len(tokenHashes) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, tokenHash := range tokenHashes {
		ttl, _ := r.client.TTL(ctx, tokenKey(tokenHash)).Result()
		if ttl > 0 {
			pipe.Set(ctx, revokedKey(tokenHash), "1", ttl)
		} else {
			pipe.Set(ctx, revokedKey(tokenHash), "1", 7*24*time.Hour)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke all user tokens: %w", err)
	}

	return nil
}
