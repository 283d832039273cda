package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults are the attributes stamped on a freshly registered certificate
type Defaults struct {
	Issuer   string
	Validity time.Duration
}

// Service contains the business logic for certificate registration and removal
type Service struct {
	repo      Repository
	registrar Registrar
	defaults  Defaults
	now       func() time.Time
}

// NewService creates a new certificate service
func NewService(repo Repository, registrar Registrar, defaults Defaults) *Service {
	if defaults.Issuer == "" {
		defaults.Issuer = DefaultIssuer
	}
	if defaults.Validity <= 0 {
		defaults.Validity = DefaultValidity
	}
	return &Service{
		repo:      repo,
		registrar: registrar,
		defaults:  defaults,
		now:       time.Now,
	}
}

// WithClock overrides the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register validates the upload, submits it to the registrar and persists the
// resulting certificate. Nothing is persisted when validation or registration fails.
func (s *Service) Register(ctx context.Context, req UploadRequest) (*Certificate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := s.registrar.Register(ctx, req)
	if err != nil {
		var regErr *RegistrationError
		if errors.As(err, &regErr) {
			return nil, regErr
		}
		return nil, &RegistrationError{Message: err.Error(), Err: err}
	}
	if id == "" {
		return nil, &RegistrationError{Message: "registrar returned an empty certificate id"}
	}

	registeredAt := s.now().UTC().Truncate(time.Second)
	params := CreateParams{
		ID:           id,
		ClientID:     req.ClientID,
		Name:         req.DisplayName(),
		Issuer:       s.defaults.Issuer,
		RegisteredAt: registeredAt,
		ExpiresAt:    registeredAt.Add(s.defaults.Validity),
		Type:         TypeCorporate,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cert, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to store certificate %s: %w", id, err)
	}
	return cert, nil
}

// ListCertificates retrieves all certificates of a client
func (s *Service) ListCertificates(ctx context.Context, clientID string) ([]*Certificate, error) {
	if clientID == "" {
		return nil, ErrClientRequired
	}
	return s.repo.ListByClientID(ctx, clientID)
}

// DeleteCertificate removes a certificate and releases its accounts
func (s *Service) DeleteCertificate(ctx context.Context, id string) ([]string, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrCertificateNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}
	return s.repo.Delete(ctx, id)
}

// ListExpiring returns the client's certificates expiring within d, including expired ones
func (s *Service) ListExpiring(ctx context.Context, clientID string, d time.Duration) ([]*Certificate, error) {
	return s.repo.ListExpiringBefore(ctx, clientID, s.now().Add(d))
}
