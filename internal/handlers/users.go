package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/friendgraph/backend/internal/accounts"
	"github.com/friendgraph/backend/internal/auth"
	"github.com/friendgraph/backend/internal/logging"
	"github.com/friendgraph/backend/internal/models"
)

// UserHandler implements registration and token endpoints.
type UserHandler struct {
	Accounts AccountService
	Sessions SessionManager
	Limiter  RateLimiter
}

// Register handles POST /api/v1/users requests.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Accounts == nil {
		logger.Error("account service unavailable")
		respondFailure(ctx, w, http.StatusInternalServerError, "internal", "account services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "register") {
		logger.Warn("registration rate limited")
		respondFailure(ctx, w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid registration payload", "error", err)
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := h.Accounts.Register(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameTaken):
			respondFailure(ctx, w, http.StatusConflict, "username_taken", err.Error())
		case errors.Is(err, accounts.ErrInvalidUsername), errors.Is(err, accounts.ErrWeakPassword):
			respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			logger.Error("registration failed", "error", err)
			respondFailure(ctx, w, http.StatusInternalServerError, "internal", "failed to create account")
		}
		return
	}

	logger.Info("user registered", "userId", user.ID)
	respondSuccess(ctx, w, http.StatusCreated, "user_created", "account created", userView{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// Token handles POST /api/v1/token requests.
func (h UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Accounts == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasAccounts", h.Accounts != nil, "hasSessions", h.Sessions != nil)
		respondFailure(ctx, w, http.StatusInternalServerError, "internal", "authentication services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "token") {
		logger.Warn("token issuance rate limited")
		respondFailure(ctx, w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid token payload", "error", err)
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	identity, err := h.Accounts.Verify(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			logger.Warn("token credentials rejected", "username", req.Username)
			respondFailure(ctx, w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		logger.Error("credential check failed", "error", err)
		respondFailure(ctx, w, http.StatusInternalServerError, "internal", "unable to verify credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, identity)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", identity.UserID)
		respondFailure(ctx, w, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

// Refresh exchanges a refresh token for a new session.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondFailure(ctx, w, http.StatusInternalServerError, "internal", "session service unavailable")
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid refresh payload", "error", err)
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		logger.Warn("missing refresh token")
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenExpired) || errors.Is(err, auth.ErrSessionNotFound) {
			logger.Warn("refresh rejected", "error", err)
			respondFailure(ctx, w, http.StatusUnauthorized, "invalid_token", "unable to refresh session")
			return
		}
		logger.Error("refresh failed", "error", err)
		respondFailure(ctx, w, http.StatusInternalServerError, "internal", "unable to refresh session")
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Tokens models.SessionTokens `json:"tokens"`
}

type userView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
