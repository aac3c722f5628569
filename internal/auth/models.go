package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token has expired")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
)

// RefreshToken is the stored state of an opaque long-lived token. The
// token itself never leaves the caller; stores only see its hash.
type RefreshToken struct {
	Username  string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsExpired reports whether the token is past its lifetime window.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsRevoked reports whether the token was explicitly revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsValid reports whether the token may still mint access tokens.
func (t *RefreshToken) IsValid() bool {
	return !t.IsExpired() && !t.IsRevoked()
}

// AuthResponse is returned by login and refresh. RefreshToken is empty on
// refresh responses: the presented refresh token is not rotated.
type AuthResponse struct {
	AccessToken  string    `json:"accessToken"`
	Username     string    `json:"username"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// hashToken computes the hex SHA-256 of a token for storage lookups, so a
// leaked store never exposes usable bearer tokens.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
