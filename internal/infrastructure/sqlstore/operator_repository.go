package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"certlink/internal/domain/operator"
)

// OperatorRepository implements the operator.Repository interface
type OperatorRepository struct {
	db *DB
}

// NewOperatorRepository creates a new operator repository
func NewOperatorRepository(db *DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// GetByEmail retrieves an operator by e-mail
func (r *OperatorRepository) GetByEmail(ctx context.Context, email string) (*operator.Operator, error) {
	var op operator.Operator
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM operators
		WHERE email = $1
	`, email).Scan(&op.ID, &op.Email, &op.Name, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, operator.ErrOperatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &op, nil
}

// Upsert creates an operator or updates the name and password of an existing e-mail
func (r *OperatorRepository) Upsert(ctx context.Context, params operator.CreateParams) (*operator.Operator, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO operators (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET name = excluded.name, password_hash = excluded.password_hash
	`, params.ID, params.Email, params.Name, params.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert operator: %w", err)
	}
	return r.GetByEmail(ctx, params.Email)
}
