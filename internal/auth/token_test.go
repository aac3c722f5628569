package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// tokenServices returns every TokenService implementation; they share
// one contract and get identical coverage.
func tokenServices(t *testing.T) map[string]TokenService {
	t.Helper()

	pasetoSvc, err := NewPasetoService(testSigningKey)
	require.NoError(t, err)

	jwtSvc, err := NewJWTService(testSigningKey)
	require.NoError(t, err)

	return map[string]TokenService{
		"paseto": pasetoSvc,
		"jwt":    jwtSvc,
	}
}

func TestTokenServiceRoundTrip(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken("alice", 15*time.Minute)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := svc.VerifyToken(token)
			require.NoError(t, err)

			assert.Equal(t, "alice", claims.Username)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 2*time.Second)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt, 2*time.Second)
		})
	}
}

func TestTokenServiceExpired(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken("alice", -time.Minute)
			require.NoError(t, err)

			_, err = svc.VerifyToken(token)
			assert.ErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenServiceInvalid(t *testing.T) {
	for name, svc := range tokenServices(t) {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken("not-a-token")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenServiceWrongKey(t *testing.T) {
	otherKey := []byte("ffffffffffffffffffffffffffffffff")

	t.Run("paseto", func(t *testing.T) {
		signer, err := NewPasetoService(testSigningKey)
		require.NoError(t, err)
		verifier, err := NewPasetoService(otherKey)
		require.NoError(t, err)

		token, err := signer.CreateToken("alice", 15*time.Minute)
		require.NoError(t, err)

		_, err = verifier.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("jwt", func(t *testing.T) {
		signer, err := NewJWTService(testSigningKey)
		require.NoError(t, err)
		verifier, err := NewJWTService(otherKey)
		require.NoError(t, err)

		token, err := signer.CreateToken("alice", 15*time.Minute)
		require.NoError(t, err)

		_, err = verifier.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenServiceKeyLength(t *testing.T) {
	_, err := NewPasetoService([]byte("too-short"))
	assert.Error(t, err)

	_, err = NewJWTService([]byte("too-short"))
	assert.Error(t, err)
}
