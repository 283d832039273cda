package certificate

import (
	"context"
	"time"
)

// Repository defines the interface for certificate data access
type Repository interface {
	// ListByClientID returns the certificates of a client in registration order
	ListByClientID(ctx context.Context, clientID string) ([]*Certificate, error)

	// GetByID retrieves a certificate by its ID
	GetByID(ctx context.Context, id string) (*Certificate, error)

	// Create persists a new certificate
	Create(ctx context.Context, params CreateParams) (*Certificate, error)

	// Delete removes a certificate and clears the link of every account bound to it,
	// returning the IDs of the released accounts.
	Delete(ctx context.Context, id string) ([]string, error)

	// ListExpiringBefore returns certificates of a client whose expiry is before t
	ListExpiringBefore(ctx context.Context, clientID string, t time.Time) ([]*Certificate, error)
}
