package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/auth"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/service"
)

// SignInProvider runs the Google sign-in flow. *auth.GoogleProvider
// implements it.
type SignInProvider interface {
	LoginURL(state string) string
	ExchangeLogin(ctx context.Context, code string) (*auth.Principal, error)
}

// AuthHandler manages sign-in, sign-out and the current-user endpoint.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGoogleLogin    → redirect the browser to Google
//   - HandleGoogleCallback → resolve the Google principal, issue a session
//   - HandleLogin          → password sign-in for provisioned editors
//   - HandleLogout         → clear the session cookie
//   - HandleMe             → return the caller's user record and roles
type AuthHandler struct {
	identity *service.IdentityService
	google   SignInProvider
	cookies  cookies
	logger   *slog.Logger
}

func NewAuthHandler(
	identity *service.IdentityService,
	google SignInProvider,
	sessionTTL time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		google:   google,
		cookies:  cookies{secure: secureCookies, sessionTTL: sessionTTL},
		logger:   logger,
	}
}

// HandleGoogleLogin redirects the user to Google's consent screen.
//
// HTTP: GET /auth/google/login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()
	h.cookies.setState(w, loginStateCookie, state, "")
	http.Redirect(w, r, h.google.LoginURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes Google sign-in.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Google profile
//  3. Resolve the canonical identity (create, link or refresh the user)
//  4. Store the session token in an HttpOnly cookie and go home
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.cookies.checkState(w, r, loginStateCookie); !ok {
		h.logger.Warn("google callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied sign-in", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	principal, err := h.google.ExchangeLogin(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.AuthenticationFailed())
		return
	}

	result, err := h.identity.ResolveOAuth(r.Context(), principal)
	if err != nil {
		h.logger.Error("google callback: resolving identity failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.cookies.setSession(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// HandleLogin signs in a password user.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
//
// The token is returned in the body for API clients and set as a cookie
// for browsers.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.identity.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setSession(w, result.Token)
	writeJSON(w, http.StatusOK, loginResponse{Token: result.Token, User: result.User})
}

// HandleLogout clears the session cookie. Tokens are stateless, so one
// that was copied elsewhere stays valid until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the caller's user record and role assignments.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	profile, err := h.identity.Me(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
