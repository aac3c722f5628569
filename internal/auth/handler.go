package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/driftboard/auth-api/internal/httputil"
	"github.com/driftboard/auth-api/internal/logging"
	"github.com/driftboard/auth-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// SignupRequest represents the signup request body.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
}

// LogoutRequest represents the logout request body.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Enabled  bool      `json:"enabled"`
}

// SignupResponse represents the signup response.
type SignupResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

// LoggedInResponse reports the session state.
type LoggedInResponse struct {
	LoggedIn bool `json:"loggedIn"`
}

// Signup handles account registration
// @Summary      Register a new account
// @Description  Create a disabled user account. An activation email with a verification link is sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup credentials"
// @Success      201 {object} SignupResponse
// @Failure      400 {object} ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} ErrorResponse "Username or email already exists"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"username": req.Username})

	created, err := h.service.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicate):
			logger.Warn("signup failed: duplicate user")
			respondError(w, "username or email already exists", httputil.CodeDuplicateUser, http.StatusConflict)
		case errors.Is(err, ErrUsernameRequired):
			respondError(w, err.Error(), httputil.CodeUsernameRequired, http.StatusBadRequest)
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		default:
			logger.Error("signup failed: internal error", "error", err.Error())
			respondError(w, "failed to sign up", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user signed up", "user_id", created.ID)

	respondJSON(w, SignupResponse{
		User: UserResponse{
			ID:       created.ID,
			Username: created.Username,
			Email:    created.Email,
			Enabled:  created.Enabled,
		},
		Message: "Signup successful. Please check your email to activate your account.",
	}, http.StatusCreated)
}

// VerifyAccount handles account activation
// @Summary      Activate an account
// @Description  Consume a verification token from the activation email and enable the account.
// @Tags         auth
// @Produce      json
// @Param        token path string true "Verification token"
// @Success      200 {object} map[string]string
// @Failure      401 {object} ErrorResponse "Invalid verification token"
// @Failure      404 {object} ErrorResponse "User bound to token no longer exists"
// @Router       /auth/accountVerification/{token} [get]
func (h *Handler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := chi.URLParam(r, "token")

	if err := h.service.VerifyAccount(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, ErrInvalidVerificationToken):
			logger.Warn("account verification failed: invalid token")
			respondError(w, "invalid verification token", httputil.CodeInvalidVerificationToken, http.StatusUnauthorized)
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("account verification failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
		default:
			logger.Error("account verification failed: internal error", "error", err.Error())
			respondError(w, "failed to verify account", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("account verified")
	respondJSON(w, map[string]string{"message": "account activated successfully"}, http.StatusOK)
}

// Login handles credential authentication
// @Summary      Log in
// @Description  Authenticate credentials and receive an access token plus a refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      403 {object} ErrorResponse "Account not verified"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"username": req.Username})

	resp, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid username or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrAccountNotVerified):
			logger.Warn("login failed: account not verified")
			respondError(w, "account not verified, please check your inbox", httputil.CodeAccountNotVerified, http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in")
	respondJSON(w, resp, http.StatusOK)
}

// Refresh handles access-token refresh
// @Summary      Refresh access token
// @Description  Validate a refresh token and mint a new access token for its user.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token and username"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid or expired refresh token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/refresh/token [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	resp, err := h.service.RefreshToken(r.Context(), req.RefreshToken, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken):
			logger.Warn("refresh failed: invalid refresh token")
			respondError(w, "invalid refresh token", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
		case errors.Is(err, ErrRefreshTokenExpired):
			logger.Warn("refresh failed: refresh token expired")
			respondError(w, "refresh token has expired", httputil.CodeRefreshTokenExpired, http.StatusUnauthorized)
		default:
			logger.Error("refresh failed: internal error", "error", err.Error())
			respondError(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, resp, http.StatusOK)
}

// Logout handles refresh-token revocation
// @Summary      Log out
// @Description  Revoke the presented refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest true "Refresh token"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Unknown refresh token"
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid logout request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			respondError(w, "invalid refresh token", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
			return
		}
		logger.Error("logout failed: internal error", "error", err.Error())
		respondError(w, "failed to logout", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("refresh token revoked")
	respondJSON(w, map[string]string{"message": "logged out successfully"}, http.StatusOK)
}

// LogoutAll revokes every refresh token held by the authenticated user
// @Summary      Log out everywhere
// @Description  Revoke every refresh token issued to the authenticated user.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} ErrorResponse "Not authenticated"
// @Router       /auth/logout/all [post]
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if err := h.service.LogoutAll(r.Context()); err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			respondError(w, "not authenticated", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}
		logger.Error("logout all failed: internal error", "error", err.Error())
		respondError(w, "failed to logout", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("all refresh tokens revoked")
	respondJSON(w, map[string]string{"message": "logged out everywhere"}, http.StatusOK)
}

// Me returns the user bound to the authenticated session
// @Summary      Current user
// @Description  Load the user for the authenticated principal.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} ErrorResponse "Not authenticated"
// @Failure      404 {object} ErrorResponse "Principal no longer exists"
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, err := h.service.CurrentUser(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAuthenticated):
			respondError(w, "not authenticated", httputil.CodeMissingAuth, http.StatusUnauthorized)
		case errors.Is(err, user.ErrNotFound):
			// Stale session: token subject no longer exists in the store
			logger.Warn("current user lookup failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
		default:
			logger.Error("current user lookup failed: internal error", "error", err.Error())
			respondError(w, "failed to load current user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, UserResponse{
		ID:       current.ID,
		Username: current.Username,
		Email:    current.Email,
		Enabled:  current.Enabled,
	}, http.StatusOK)
}

// LoggedIn reports whether the request carries an authenticated session
// @Summary      Session state
// @Description  True when the request carries a valid, non-anonymous authenticated principal.
// @Tags         auth
// @Produce      json
// @Success      200 {object} LoggedInResponse
// @Router       /auth/logged-in [get]
func (h *Handler) LoggedIn(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, LoggedInResponse{LoggedIn: h.service.IsLoggedIn(r.Context())}, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

func respondError(w http.ResponseWriter, message string, code httputil.Code, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
