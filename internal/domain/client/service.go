package client

import (
	"context"
	"errors"
)

// Service contains the business logic for client lookups
type Service struct {
	repo Repository
}

// NewService creates a new client service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListClients returns all selectable clients
func (s *Service) ListClients(ctx context.Context) ([]*Client, error) {
	return s.repo.List(ctx)
}

// GetClient retrieves a client, normalising repository misses to ErrClientNotFound
func (s *Service) GetClient(ctx context.Context, id string) (*Client, error) {
	if id == "" {
		return nil, ErrClientNotFound
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if c == nil {
		return nil, ErrClientNotFound
	}
	return c, nil
}
