package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/driftboard/auth-api/internal/database"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username or email already exists")
)

// Repository handles user persistence.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) idb(ctx context.Context) bun.IDB {
	return database.IDBFromContext(ctx, r.db)
}

// Create inserts a new user. The database unique constraints on username
// and email arbitrate concurrent signups: exactly one racing insert
// succeeds, the rest fail with ErrDuplicate.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	dbUser := &database.User{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Enabled:      u.Enabled,
		CreatedAt:    u.CreatedAt,
	}

	_, err := r.idb(ctx).NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	dbUser := new(database.User)
	err := r.idb(ctx).NewSelect().
		Model(dbUser).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// Enable marks a user account as enabled. Enabling an already enabled
// account is a no-op at the row level.
func (r *Repository) Enable(ctx context.Context, username string) error {
	result, err := r.idb(ctx).NewUpdate().
		Model((*database.User)(nil)).
		Set("enabled = ?", true).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to enable user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:           dbu.ID,
		Username:     dbu.Username,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		Enabled:      dbu.Enabled,
		CreatedAt:    dbu.CreatedAt,
	}
}
