package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"certlink/internal/domain/client"
)

// ClientRepository implements the client.Repository interface
type ClientRepository struct {
	db *DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// List returns every client ordered by ID
func (r *ClientRepository) List(ctx context.Context) ([]*client.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, business_number FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*client.Client, 0)
	for rows.Next() {
		var c client.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.BusinessNumber); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

// GetByID retrieves a client by its ID
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*client.Client, error) {
	var c client.Client
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, business_number FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.BusinessNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, client.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// Upsert inserts a client or overwrites its name and business number
func (r *ClientRepository) Upsert(ctx context.Context, c client.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, business_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, business_number = excluded.business_number
	`, c.ID, c.Name, c.BusinessNumber)
	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}
