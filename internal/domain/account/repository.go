package account

import "context"

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// ListByClientID retrieves all accounts of a client ordered by ID
	ListByClientID(ctx context.Context, clientID string) ([]*Account, error)

	// Upsert creates or overwrites an account
	Upsert(ctx context.Context, params CreateParams) (*Account, error)

	// Link binds the accounts to a certificate atomically. Accounts bound to a
	// different certificate make the whole call fail with ErrAlreadyLinked.
	Link(ctx context.Context, params LinkParams) error
}
