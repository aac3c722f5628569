package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/driftboard/auth-api/internal/logging"
	"github.com/driftboard/auth-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountNotVerified = errors.New("account not verified, please check your inbox")
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Service orchestrates the authentication flows: signup, account
// verification, login, token refresh and logout.
type Service struct {
	users                UserRepository
	verifications        VerificationTokenRepository
	refreshTokens        RefreshTokenRepository
	tokenService         TokenService
	mailService          MailService
	tx                   Transactor
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewService(
	users UserRepository,
	verifications VerificationTokenRepository,
	refreshTokens RefreshTokenRepository,
	tokenService TokenService,
	mailService MailService,
	tx Transactor,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
) *Service {
	return &Service{
		users:                users,
		verifications:        verifications,
		refreshTokens:        refreshTokens,
		tokenService:         tokenService,
		mailService:          mailService,
		tx:                   tx,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// Signup creates a disabled user, issues an activation token bound to it
// and dispatches the activation email. The user row and the token row
// commit atomically; the email is best effort and never fails the signup.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*user.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var (
		created *user.User
		token   string
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		created, err = s.users.Create(ctx, &user.User{
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			Enabled:      false,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return err
		}

		token, err = s.verifications.Issue(ctx, created.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, user.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to sign up user: %w", err)
	}

	// Dispatch the activation email off the request's critical path. A
	// delivery failure is logged, never surfaced: the signup already
	// committed.
	go func() {
		emailCtx := context.Background()
		if err := s.mailService.SendActivationEmail(emailCtx, email, token); err != nil {
			s.logger.Warn("failed to send activation email", "username", username, "error", err)
		}
	}()

	return created, nil
}

// VerifyAccount consumes an activation token and enables the bound user.
// Consumption invalidates the token, so verifying twice with the same
// token fails with ErrInvalidVerificationToken.
func (s *Service) VerifyAccount(ctx context.Context, token string) error {
	username, err := s.verifications.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidVerificationToken) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("failed to consume verification token: %w", err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to load user for verification: %w", err)
	}

	if err := s.users.Enable(ctx, username); err != nil {
		return fmt.Errorf("failed to enable user: %w", err)
	}

	return nil
}

// Login checks the credentials and, on success, mints an access token
// with the username as subject plus a fresh refresh token. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !existing.Enabled {
		return nil, ErrAccountNotVerified
	}

	accessToken, expiresAt, err := s.mintAccessToken(existing.Username)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshExpiry := time.Now().Add(s.refreshTokenDuration)
	if err := s.refreshTokens.Store(ctx, existing.Username, refreshToken, refreshExpiry); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		Username:     existing.Username,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// RefreshToken validates a refresh token and mints a new access token for
// the username it was issued to. The refresh token itself is not rotated.
// A token presented with a username other than its own is rejected.
func (s *Service) RefreshToken(ctx context.Context, refreshToken, username string) (*AuthResponse, error) {
	rt, err := s.refreshTokens.Get(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenNotFound), errors.Is(err, ErrRefreshTokenRevoked):
			return nil, ErrInvalidRefreshToken
		case errors.Is(err, ErrRefreshTokenExpired):
			return nil, ErrRefreshTokenExpired
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if rt.Username != username {
		return nil, ErrInvalidRefreshToken
	}

	accessToken, expiresAt, err := s.mintAccessToken(rt.Username)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken: accessToken,
		Username:    rt.Username,
		ExpiresAt:   expiresAt,
	}, nil
}

// Logout revokes the presented refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokens.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token issued to the authenticated
// principal, ending all of their sessions at once.
func (s *Service) LogoutAll(ctx context.Context) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.IsAnonymous() || !p.Authenticated {
		return ErrNotAuthenticated
	}

	if err := s.refreshTokens.RevokeAllForUser(ctx, p.Username); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// CurrentUser loads the user bound to the authenticated principal in the
// context. A stale principal whose user no longer exists fails with
// user.ErrNotFound.
func (s *Service) CurrentUser(ctx context.Context) (*user.User, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.IsAnonymous() || !p.Authenticated {
		return nil, ErrNotAuthenticated
	}

	current, err := s.users.GetByUsername(ctx, p.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return current, nil
}

// IsLoggedIn reports whether the context carries an authenticated,
// non-anonymous principal.
func (s *Service) IsLoggedIn(ctx context.Context) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && !p.IsAnonymous() && p.Authenticated
}

func (s *Service) mintAccessToken(username string) (string, time.Time, error) {
	accessToken, err := s.tokenService.CreateToken(username, s.accessTokenDuration)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create access token: %w", err)
	}
	return accessToken, time.Now().Add(s.accessTokenDuration), nil
}
