package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an account identity. Accounts are created disabled and become
// enabled exactly once, when the signup verification token is consumed.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never exposed in JSON
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
}
