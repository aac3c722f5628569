package auth

import (
	"context"
	"time"

	"github.com/driftboard/auth-api/internal/user"
)

// TokenService defines the interface for access-token creation and
// validation. Implementations include PasetoService (PASETO v4.local)
// and JWTService (HS256).
type TokenService interface {
	CreateToken(username string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// TokenClaims are the claims carried by an access token.
type TokenClaims struct {
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// UserRepository is the credential store consumed by the auth service.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	Enable(ctx context.Context, username string) error
}

// VerificationTokenRepository issues and consumes one-time account
// activation tokens. Consume invalidates the token, so a second consume
// of the same token fails.
type VerificationTokenRepository interface {
	Issue(ctx context.Context, username string) (string, error)
	Consume(ctx context.Context, token string) (string, error)
}

// RefreshTokenRepository defines the interface for refresh token storage.
type RefreshTokenRepository interface {
	Store(ctx context.Context, username, token string, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, username string) error
}

// MailService is the notification sink for account activation emails.
// Delivery is best effort; the auth service logs failures and moves on.
type MailService interface {
	SendActivationEmail(ctx context.Context, recipient, token string) error
}

// Transactor groups store mutations into one atomic unit of work.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
