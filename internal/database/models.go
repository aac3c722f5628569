package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row. Username and email carry unique
// constraints; concurrent signups race on them and exactly one insert wins.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Username     string    `bun:"username,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Enabled      bool      `bun:"enabled,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// VerificationToken binds an opaque activation token to a user. Rows are
// deleted when consumed, so a token activates an account at most once.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Token     string    `bun:"token,notnull,unique"`
	Username  string    `bun:"username,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
