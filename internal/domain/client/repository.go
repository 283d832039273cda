package client

import "context"

// Repository defines the interface for client data access
type Repository interface {
	// List returns every client ordered by ID
	List(ctx context.Context) ([]*Client, error)

	// GetByID retrieves a client by its ID
	GetByID(ctx context.Context, id string) (*Client, error)

	// Upsert inserts a client or overwrites its name and business number
	Upsert(ctx context.Context, c Client) error
}
