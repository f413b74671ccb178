package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/slick-storefront/internal/api/middleware"
	"github.com/example/slick-storefront/internal/auth"
	"github.com/example/slick-storefront/internal/domain/user"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/notification"
	"github.com/example/slick-storefront/internal/session"
)

const refreshCookiePath = "/api/auth/refresh"

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	users  *user.Service
	jwt    *auth.JWTService
	toasts *notification.Hub
	logger *slog.Logger
}

// NewAuthHandlers creates a new AuthHandlers instance. toasts may be nil.
func NewAuthHandlers(users *user.Service, jwtService *auth.JWTService, toasts *notification.Hub, log *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		users:  users,
		jwt:    jwtService,
		toasts: toasts,
		logger: logger.Component(log, "Auth"),
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the user and, for clients that do not keep cookies,
// the access token.
type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Message     string       `json:"message,omitempty"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.Signup(r.Context(), session.NewStore(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.signIn(w, r, u, http.StatusCreated, "Registration successful")
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.Login(r.Context(), session.NewStore(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.signIn(w, r, u, http.StatusOK, "Login successful")
}

// Logout clears the session cookies and any pending toasts.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.NewStore()
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		sess.Set(r.Context(), claims.Identity())
		if h.toasts != nil {
			h.toasts.Drop(claims.UserID)
		}
	}
	h.users.Logout(r.Context(), sess)
	h.clearAuthCookies(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Refresh issues a new token pair from a valid refresh cookie. Refresh
// tokens are not tracked server side.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondJSONError(w, "No refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwt.ValidateRefreshToken(refreshCookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.clearAuthCookies(w)
		h.fail(w, r, err)
		return
	}
	h.signIn(w, r, u, http.StatusOK, "Token refreshed")
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newUserResponse(u))
}

// Helper methods

func (h *AuthHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth request failed", "path", r.URL.Path, "error", err)
	}
	respondJSONError(w, message, status)
}

func (h *AuthHandlers) signIn(w http.ResponseWriter, r *http.Request, u *user.User, status int, message string) {
	tokens, err := h.jwt.IssueTokens(u.Identity())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setAuthCookies(w, r, tokens)

	respondJSON(w, status, AuthResponse{
		User:        newUserResponse(u),
		AccessToken: tokens.AccessToken,
		ExpiresAt:   tokens.AccessExpiry,
		Message:     message,
	})
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, tokens auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    tokens.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  tokens.RefreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
	})
}
