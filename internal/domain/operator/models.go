package operator

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDomainNotAllowed   = errors.New("email domain is not allowed")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
)

// Operator is a back-office user who may manage client certificates
type Operator struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Domain returns the part of the e-mail after '@'
func (o Operator) Domain() string {
	return EmailDomain(o.Email)
}

// CreateParams contains parameters for creating an operator
type CreateParams struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
}

// Validate checks the creation parameters
func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.Email) == "" || !strings.Contains(p.Email, "@") {
		return ErrEmailRequired
	}
	if p.PasswordHash == "" {
		return ErrPasswordRequired
	}
	return nil
}

// EmailDomain returns the lower-cased domain of an e-mail address
func EmailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// NormalizeEmail trims and lower-cases an e-mail address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
