package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/tenantdesk/apiserver/internal/services"
	"github.com/tenantdesk/apiserver/types"
)

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (types.User, error)
}

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAuthHandler(authService)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(authMiddleware).Get("/me", handler.Me)
}

// RequireAuth is the gate in front of every protected route. It accepts a
// bearer token, loads the user behind it and attaches it to the request
// context. Requests that fail any step get 401 and never reach next.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := auth.Authenticate(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, services.ErrUnauthorized) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				hlog.FromRequest(r).Error().Err(err).Msg("authentication failed")
				writeError(w, http.StatusInternalServerError, "failed to authenticate")
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// Register creates a tenant with its first admin and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, tenant, user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "tenant")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user, Tenant: &tenant})
}

// Login verifies credentials and returns a JWT. Omitting tenant_id logs in a
// super-admin.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	var tenantID uuid.NullUUID
	if req.TenantID != nil {
		tenantID = uuid.NullUUID{UUID: *req.TenantID, Valid: true}
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password, tenantID)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type LoginRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

type AuthResponse struct {
	Token  string        `json:"token"`
	User   types.User    `json:"user"`
	Tenant *types.Tenant `json:"tenant,omitempty"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
