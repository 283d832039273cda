package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"certlink/internal/domain/certificate"
)

const certificateColumns = `id, client_id, name, issuer, registered_at, expires_at, type`

// CertificateRepository implements the certificate.Repository interface
type CertificateRepository struct {
	db *DB
}

// NewCertificateRepository creates a new certificate repository
func NewCertificateRepository(db *DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*certificate.Certificate, error) {
	var c certificate.Certificate
	if err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Issuer, &c.RegisteredAt, &c.ExpiresAt, &c.Type); err != nil {
		return nil, err
	}
	c.RegisteredAt = c.RegisteredAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	return &c, nil
}

func (r *CertificateRepository) list(ctx context.Context, query string, args ...any) ([]*certificate.Certificate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	certs := make([]*certificate.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certificates: %w", err)
	}
	return certs, nil
}

// ListByClientID returns the certificates of a client in registration order
func (r *CertificateRepository) ListByClientID(ctx context.Context, clientID string) ([]*certificate.Certificate, error) {
	return r.list(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE client_id = $1
		ORDER BY registered_at, id
	`, clientID)
}

// ListExpiringBefore returns certificates of a client whose expiry is before t
func (r *CertificateRepository) ListExpiringBefore(ctx context.Context, clientID string, t time.Time) ([]*certificate.Certificate, error) {
	return r.list(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE client_id = $1 AND expires_at < $2
		ORDER BY expires_at, id
	`, clientID, t.UTC())
}

// GetByID retrieves a certificate by its ID
func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*certificate.Certificate, error) {
	c, err := scanCertificate(r.db.QueryRowContext(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, certificate.ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return c, nil
}

// Create persists a new certificate
func (r *CertificateRepository) Create(ctx context.Context, params certificate.CreateParams) (*certificate.Certificate, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, params.ID, params.ClientID, params.Name, params.Issuer,
		params.RegisteredAt.UTC(), params.ExpiresAt.UTC(), string(params.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return &certificate.Certificate{
		ID:           params.ID,
		ClientID:     params.ClientID,
		Name:         params.Name,
		Issuer:       params.Issuer,
		RegisteredAt: params.RegisteredAt.UTC(),
		ExpiresAt:    params.ExpiresAt.UTC(),
		Type:         params.Type,
	}, nil
}

// Delete removes a certificate and clears the link of every account bound to it
func (r *CertificateRepository) Delete(ctx context.Context, id string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM accounts WHERE certificate_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked accounts: %w", err)
	}
	released := make([]string, 0)
	for rows.Next() {
		var accountID string
		if err := rows.Scan(&accountID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		released = append(released, accountID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate linked accounts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET certificate_id = NULL WHERE certificate_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to release accounts: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete certificate: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, certificate.ErrCertificateNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return released, nil
}
