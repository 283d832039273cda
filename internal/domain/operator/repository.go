package operator

import "context"

// Repository defines the interface for operator data access
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Operator, error)
	Upsert(ctx context.Context, params CreateParams) (*Operator, error)
}
