package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"certlink/internal/domain/operator"
	"certlink/internal/shared/auth"
	"certlink/internal/shared/middleware"
)

// Authenticator verifies operator credentials
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*operator.Operator, error)
}

type AuthHandler struct {
	operators Authenticator
	jwt       *auth.JWT
}

func NewAuthHandler(operators Authenticator, jwt *auth.JWT) *AuthHandler {
	return &AuthHandler{operators: operators, jwt: jwt}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Operator  *operator.Operator `json:"operator"`
}

type MeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// HandleLogin checks e-mail and password and issues a session token,
// both in the body and as an HttpOnly cookie
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	op, err := h.operators.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, operator.ErrEmailRequired) || errors.Is(err, operator.ErrPasswordRequired) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		log.Warn().Err(err).Str("email", req.Email).Msg("Login rejected")
		writeError(w, r, err)
		return
	}

	token, err := h.jwt.Generate(op.ID, op.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expiresAt := time.Now().Add(h.jwt.TTL())

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	log.Info().Str("operator", op.Email).Msg("Operator logged in")
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, ExpiresAt: expiresAt, Operator: op})
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated operator
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	op, ok := middleware.Operator(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{ID: op.ID, Email: op.Email})
}
