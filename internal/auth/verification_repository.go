package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/driftboard/auth-api/internal/database"
)

var ErrInvalidVerificationToken = errors.New("invalid verification token")

// VerificationRepository stores one-time account activation tokens in
// Postgres. Issue participates in the signup transaction when one is in
// flight, so a failed signup leaves no orphan token behind.
type VerificationRepository struct {
	db *bun.DB
}

func NewVerificationRepository(db *bun.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) idb(ctx context.Context) bun.IDB {
	return database.IDBFromContext(ctx, r.db)
}

// Issue generates an opaque random token bound to the username and
// persists it.
func (r *VerificationRepository) Issue(ctx context.Context, username string) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}

	dbToken := &database.VerificationToken{
		Token:    token,
		Username: username,
	}

	if _, err := r.idb(ctx).NewInsert().Model(dbToken).Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store verification token: %w", err)
	}

	return token, nil
}

// Consume looks up the token and deletes it in one statement, returning
// the bound username. A token can therefore activate an account at most
// once; a second consume fails with ErrInvalidVerificationToken.
func (r *VerificationRepository) Consume(ctx context.Context, token string) (string, error) {
	dbToken := new(database.VerificationToken)
	_, err := r.idb(ctx).NewDelete().
		Model((*database.VerificationToken)(nil)).
		Where("token = ?", token).
		Returning("*").
		Exec(ctx, dbToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidVerificationToken
		}
		return "", fmt.Errorf("failed to consume verification token: %w", err)
	}

	return dbToken.Username, nil
}

// generateRandomToken creates a cryptographically secure random token.
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
