package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftboard/auth-api/internal/logging"
)

type handlerFixture struct {
	*serviceFixture
	router *chi.Mux
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	f := newServiceFixture(t)
	handler := NewHandler(f.service, logging.NewLogger(true))
	mw := NewMiddleware(f.tokenService)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", handler.Signup)
		r.Get("/accountVerification/{token}", handler.VerifyAccount)
		r.Post("/login", handler.Login)
		r.Post("/refresh/token", handler.Refresh)
		r.Post("/logout", handler.Logout)
		r.With(mw.OptionalAuth).Get("/logged-in", handler.LoggedIn)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Get("/me", handler.Me)
			r.Post("/logout/all", handler.LogoutAll)
		})
	})

	return &handlerFixture{serviceFixture: f, router: r}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) loginAs(t *testing.T, username string) AuthResponse {
	t.Helper()

	f.signupAndVerify(t, username)

	rec := f.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: "s3cret-password"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSignupHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/signup", SignupRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "s3cret-password",
		}, nil)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SignupResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.User.Username)
		assert.False(t, resp.User.Enabled)
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.signup(t, "alice")

		rec := f.do(t, http.MethodPost, "/auth/signup", SignupRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "s3cret-password",
		}, nil)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "DUPLICATE_USER", decodeError(t, rec).Code)
	})

	t.Run("validation errors are bad requests", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/signup", SignupRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "short",
		}, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "PASSWORD_TOO_SHORT", decodeError(t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newHandlerFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestVerifyAccountHandler(t *testing.T) {
	t.Run("activates the account", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.signup(t, "alice")

		token := f.verifications.tokensFor("alice")[0]
		rec := f.do(t, http.MethodGet, "/auth/accountVerification/"+token, nil, nil)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodGet, "/auth/accountVerification/bogus", nil, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_VERIFICATION_TOKEN", decodeError(t, rec).Code)
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("returns auth response", func(t *testing.T) {
		f := newHandlerFixture(t)
		resp := f.loginAs(t, "alice")

		assert.Equal(t, "alice", resp.Username)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), resp.ExpiresAt, 2*time.Second)
	})

	t.Run("bad credentials are unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.signupAndVerify(t, "alice")

		rec := f.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: "alice", Password: "nope"}, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)
	})

	t.Run("unverified account is forbidden", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.signup(t, "alice")

		rec := f.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: "alice", Password: "s3cret-password"}, nil)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "ACCOUNT_NOT_VERIFIED", decodeError(t, rec).Code)
	})
}

func TestRefreshHandler(t *testing.T) {
	t.Run("mints a new access token", func(t *testing.T) {
		f := newHandlerFixture(t)
		login := f.loginAs(t, "alice")

		rec := f.do(t, http.MethodPost, "/auth/refresh/token", RefreshRequest{
			RefreshToken: login.RefreshToken,
			Username:     "alice",
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Empty(t, resp.RefreshToken)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/refresh/token", RefreshRequest{
			RefreshToken: "bogus",
			Username:     "alice",
		}, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_REFRESH_TOKEN", decodeError(t, rec).Code)
	})

	t.Run("expired token reports expiry", func(t *testing.T) {
		f := newHandlerFixture(t)
		login := f.loginAs(t, "alice")

		f.refreshTokens.expire(login.RefreshToken)

		rec := f.do(t, http.MethodPost, "/auth/refresh/token", RefreshRequest{
			RefreshToken: login.RefreshToken,
			Username:     "alice",
		}, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "REFRESH_TOKEN_EXPIRED", decodeError(t, rec).Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	f := newHandlerFixture(t)
	login := f.loginAs(t, "alice")

	rec := f.do(t, http.MethodPost, "/auth/logout", LogoutRequest{RefreshToken: login.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked token no longer refreshes
	rec = f.do(t, http.MethodPost, "/auth/refresh/token", RefreshRequest{
		RefreshToken: login.RefreshToken,
		Username:     "alice",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllHandler(t *testing.T) {
	t.Run("revokes every session of the caller", func(t *testing.T) {
		f := newHandlerFixture(t)
		login := f.loginAs(t, "alice")

		header := http.Header{}
		header.Set("Authorization", "Bearer "+login.AccessToken)

		rec := f.do(t, http.MethodPost, "/auth/logout/all", nil, header)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/refresh/token", RefreshRequest{
			RefreshToken: login.RefreshToken,
			Username:     "alice",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_REFRESH_TOKEN", decodeError(t, rec).Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/logout/all", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMeHandler(t *testing.T) {
	t.Run("returns the current user", func(t *testing.T) {
		f := newHandlerFixture(t)
		login := f.loginAs(t, "alice")

		rec := f.do(t, http.MethodGet, "/auth/me", nil, http.Header{
			"Authorization": []string{fmt.Sprintf("Bearer %s", login.AccessToken)},
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodGet, "/auth/me", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodGet, "/auth/me", nil, http.Header{
			"Authorization": []string{"NotBearer abc"},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_AUTH_HEADER", decodeError(t, rec).Code)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodGet, "/auth/me", nil, http.Header{
			"Authorization": []string{"Bearer garbage"},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", decodeError(t, rec).Code)
	})
}

func TestLoggedInHandler(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/logged-in", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoggedInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.LoggedIn)

	login := f.loginAs(t, "alice")

	rec = f.do(t, http.MethodGet, "/auth/logged-in", nil, http.Header{
		"Authorization": []string{fmt.Sprintf("Bearer %s", login.AccessToken)},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.LoggedIn)
}
