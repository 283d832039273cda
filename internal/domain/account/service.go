package account

import (
	"context"
	"errors"
)

// Service contains the business logic for account operations
type Service struct {
	repo Repository
}

// NewService creates a new account service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListAccounts retrieves all accounts for a client
func (s *Service) ListAccounts(ctx context.Context, clientID string) ([]*Account, error) {
	if clientID == "" {
		return nil, errors.New("client ID is required")
	}

	return s.repo.ListByClientID(ctx, clientID)
}

// UpsertAccount creates or updates an account with validation
func (s *Service) UpsertAccount(ctx context.Context, params CreateParams) (*Account, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return s.repo.Upsert(ctx, params)
}

// LinkAccounts binds accounts to a certificate
func (s *Service) LinkAccounts(ctx context.Context, params LinkParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	return s.repo.Link(ctx, params)
}
