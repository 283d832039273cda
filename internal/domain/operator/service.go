package operator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PasswordHasher hashes and verifies operator passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// DomainPolicy decides which e-mail domains may sign in
type DomainPolicy interface {
	Allowed(email string) bool
}

// Service contains operator sign-in and provisioning logic
type Service struct {
	repo    Repository
	hasher  PasswordHasher
	domains DomainPolicy
}

// NewService creates a new operator service
func NewService(repo Repository, hasher PasswordHasher, domains DomainPolicy) *Service {
	return &Service{repo: repo, hasher: hasher, domains: domains}
}

// Authenticate checks an operator's credentials. Unknown e-mails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Operator, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !s.domains.Allowed(email) {
		return nil, ErrDomainNotAllowed
	}

	op, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrOperatorNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Verify(op.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return op, nil
}

// Provision creates or updates an operator with a plain-text password
func (s *Service) Provision(ctx context.Context, email, name, password string) (*Operator, error) {
	email = NormalizeEmail(email)
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !s.domains.Allowed(email) {
		return nil, ErrDomainNotAllowed
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Upsert(ctx, CreateParams{Email: email, Name: name, PasswordHash: hash})
}

// Upsert stores an operator whose password is already hashed
func (s *Service) Upsert(ctx context.Context, params CreateParams) (*Operator, error) {
	params.Email = NormalizeEmail(params.Email)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	return s.repo.Upsert(ctx, params)
}
