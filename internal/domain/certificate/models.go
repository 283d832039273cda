package certificate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type distinguishes personal from corporate certificates
type Type string

const (
	TypeIndividual Type = "individual"
	TypeCorporate  Type = "corporate"
)

const (
	// DefaultName is used when the uploaded file carries no name
	DefaultName = "New certificate"
	// DefaultIssuer is the issuing authority recorded when the registrar does not report one
	DefaultIssuer = "KFTC"
	// DefaultValidity is the lifetime assigned to a freshly registered certificate
	DefaultValidity = 365 * 24 * time.Hour
)

// Domain errors
var (
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrClientRequired      = errors.New("client is required")
	ErrFileRequired        = errors.New("certificate file is required")
	ErrPasswordRequired    = errors.New("certificate password is required")
	ErrInvalidType         = errors.New("invalid certificate type")
	ErrRegistrationFailed  = errors.New("certificate registration failed")
)

// Certificate is a registered digital credential of a client.
// Linked accounts are not stored here; they are derived from Account.CertificateID.
type Certificate struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"clientId"`
	Name         string    `json:"name"`
	Issuer       string    `json:"issuer"`
	RegisteredAt time.Time `json:"registeredAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Type         Type      `json:"type"`
}

// IsExpired reports whether the certificate is no longer valid at now
func (c Certificate) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ExpiresWithin reports whether the certificate is still valid but expires within d of now
func (c Certificate) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !c.IsExpired(now) && c.ExpiresAt.Before(now.Add(d))
}

// ValidationError reports an upload field that failed validation before any I/O.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RegistrationError carries the human-readable message of a rejected registration.
type RegistrationError struct {
	Message string
	Err     error
}

func (e *RegistrationError) Error() string {
	if e.Message == "" {
		return ErrRegistrationFailed.Error()
	}
	return fmt.Sprintf("%v: %s", ErrRegistrationFailed, e.Message)
}

func (e *RegistrationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRegistrationFailed}
	}
	return []error{ErrRegistrationFailed, e.Err}
}

// UploadRequest is the operator's certificate submission
type UploadRequest struct {
	ClientID string
	FileName string
	File     []byte
	Password string
}

// Validate checks the preconditions of an upload in form order: client, file, password.
func (r UploadRequest) Validate() error {
	if strings.TrimSpace(r.ClientID) == "" {
		return &ValidationError{Field: "clientId", Err: ErrClientRequired}
	}
	if len(r.File) == 0 {
		return &ValidationError{Field: "file", Err: ErrFileRequired}
	}
	if r.Password == "" {
		return &ValidationError{Field: "password", Err: ErrPasswordRequired}
	}
	return nil
}

// DisplayName derives the certificate name from the uploaded file name
func (r UploadRequest) DisplayName() string {
	name := strings.TrimSpace(r.FileName)
	if name == "" {
		return DefaultName
	}
	return name
}

// CreateParams contains parameters for persisting a certificate
type CreateParams struct {
	ID           string
	ClientID     string
	Name         string
	Issuer       string
	RegisteredAt time.Time
	ExpiresAt    time.Time
	Type         Type
}

// Validate validates the create parameters
func (p CreateParams) Validate() error {
	if p.ID == "" {
		return errors.New("certificate ID is required")
	}
	if p.ClientID == "" {
		return ErrClientRequired
	}
	if !IsValidType(p.Type) {
		return ErrInvalidType
	}
	if !p.ExpiresAt.After(p.RegisteredAt) {
		return errors.New("certificate must expire after registration")
	}
	return nil
}

// IsValidType checks if the provided certificate type is valid.
func IsValidType(t Type) bool {
	return t == TypeIndividual || t == TypeCorporate
}
