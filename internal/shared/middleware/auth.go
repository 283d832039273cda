package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"certlink/internal/shared/auth"
)

type ContextKey string

const (
	OperatorIDKey ContextKey = "operator_id"
	EmailKey      ContextKey = "email"
)

// SessionCookie carries the operator's token for browser clients
const SessionCookie = "access_token"

// AuthenticatedOperator is the identity a validated token carries
type AuthenticatedOperator struct {
	ID    string
	Email string
}

// Auth rejects requests without a valid session token and stores the operator in the context.
// The cookie is tried first, then an Authorization: Bearer header.
func Auth(jwt *auth.JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				token = cookie.Value
			} else {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					http.Error(w, "Authentication required", http.StatusUnauthorized)
					return
				}
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || parts[0] != "Bearer" {
					http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
					return
				}
				token = parts[1]
			}

			claims, err := jwt.Validate(token)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorIDKey, claims.OperatorID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DomainChecker decides whether an operator e-mail may use the service
type DomainChecker interface {
	Allowed(email string) bool
}

// RequireDomain answers 403 unless the authenticated operator's e-mail domain is allowed.
// Must run after Auth.
func RequireDomain(domains DomainChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, ok := Operator(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			if !domains.Allowed(operator.Email) {
				log.Warn().Str("operator", operator.Email).Str("path", r.URL.Path).Msg("operator domain not allowed")
				http.Error(w, "Access restricted to allowed domains", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Operator returns the operator stored by Auth
func Operator(ctx context.Context) (AuthenticatedOperator, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	if !ok || email == "" {
		return AuthenticatedOperator{}, false
	}
	id, _ := ctx.Value(OperatorIDKey).(string)
	return AuthenticatedOperator{ID: id, Email: email}, true
}

// WithOperator returns a context carrying the operator, as Auth would store it
func WithOperator(ctx context.Context, op AuthenticatedOperator) context.Context {
	ctx = context.WithValue(ctx, OperatorIDKey, op.ID)
	return context.WithValue(ctx, EmailKey, op.Email)
}
