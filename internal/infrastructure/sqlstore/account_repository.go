package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
)

const accountColumns = `id, client_id, bank_name, bank_code, account_number, account_holder, account_type, balance, certificate_id`

// AccountRepository implements the account.Repository interface
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	var balance decimal.NullDecimal
	var certificateID sql.NullString

	err := row.Scan(
		&acc.ID, &acc.ClientID, &acc.BankName, &acc.BankCode, &acc.AccountNumber,
		&acc.AccountHolder, &acc.AccountType, &balance, &certificateID,
	)
	if err != nil {
		return nil, err
	}

	if balance.Valid {
		acc.Balance = &balance.Decimal
	}
	if certificateID.Valid {
		acc.CertificateID = certificateID.String
	}
	return &acc, nil
}

// ListByClientID retrieves all accounts of a client ordered by ID
func (r *AccountRepository) ListByClientID(ctx context.Context, clientID string) ([]*account.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE client_id = $1
		ORDER BY id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Upsert creates or overwrites an account
func (r *AccountRepository) Upsert(ctx context.Context, params account.CreateParams) (*account.Account, error) {
	var balance decimal.NullDecimal
	if params.Balance != nil {
		balance = decimal.NewNullDecimal(params.Balance.Round(2))
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			client_id = excluded.client_id,
			bank_name = excluded.bank_name,
			bank_code = excluded.bank_code,
			account_number = excluded.account_number,
			account_holder = excluded.account_holder,
			account_type = excluded.account_type,
			balance = excluded.balance,
			certificate_id = excluded.certificate_id
	`, params.ID, params.ClientID, params.BankName, params.BankCode, params.AccountNumber,
		params.AccountHolder, string(params.AccountType), balance, nullString(params.CertificateID))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	acc := &account.Account{
		ID:            params.ID,
		ClientID:      params.ClientID,
		BankName:      params.BankName,
		BankCode:      params.BankCode,
		AccountNumber: params.AccountNumber,
		AccountHolder: params.AccountHolder,
		AccountType:   params.AccountType,
		CertificateID: params.CertificateID,
	}
	if balance.Valid {
		acc.Balance = &balance.Decimal
	}
	return acc, nil
}

// Link binds the accounts to a certificate in one transaction. The certificate
// and every account must belong to the same client, and no account may be bound
// to a different certificate.
func (r *AccountRepository) Link(ctx context.Context, params account.LinkParams) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var clientID string
	err = tx.QueryRowContext(ctx, `SELECT client_id FROM certificates WHERE id = $1`, params.CertificateID).Scan(&clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return certificate.ErrCertificateNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get certificate: %w", err)
	}

	for _, id := range params.AccountIDs {
		var owner string
		var current sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT client_id, certificate_id FROM accounts WHERE id = $1`, id).Scan(&owner, &current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", account.ErrAccountNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if owner != clientID {
			return fmt.Errorf("%w: account %s belongs to another client", account.ErrInvalidInput, id)
		}
		if current.Valid && current.String != "" && current.String != params.CertificateID {
			return fmt.Errorf("%w: %s", account.ErrAlreadyLinked, id)
		}
	}

	if params.Replace {
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET certificate_id = NULL WHERE certificate_id = $1`, params.CertificateID); err != nil {
			return fmt.Errorf("failed to unlink accounts: %w", err)
		}
	}
	for _, id := range params.AccountIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET certificate_id = $1 WHERE id = $2`, params.CertificateID, id); err != nil {
			return fmt.Errorf("failed to link account %s: %w", id, err)
		}
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
