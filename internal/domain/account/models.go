package account

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Type is the product category of a bank account
type Type string

const (
	TypeDeposit  Type = "deposit"
	TypeSavings  Type = "savings"
	TypeChecking Type = "checking"
)

var accountTypes = map[Type]struct{}{
	TypeDeposit:  {},
	TypeSavings:  {},
	TypeChecking: {},
}

// Domain errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyLinked      = errors.New("account is linked to another certificate")
)

// Account represents a bank account that can be bound to at most one certificate.
// CertificateID is a weak back-reference; an empty value means the account is unlinked.
type Account struct {
	ID            string           `json:"id"`
	ClientID      string           `json:"clientId"`
	BankName      string           `json:"bankName"`
	BankCode      string           `json:"bankCode"`
	AccountNumber string           `json:"accountNumber"`
	AccountHolder string           `json:"accountHolder"`
	AccountType   Type             `json:"accountType"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
	CertificateID string           `json:"certificateId,omitempty"`
}

// IsLinked reports whether the account is bound to any certificate
func (a Account) IsLinked() bool {
	return a.CertificateID != ""
}

// EligibleFor reports whether the account may be offered when linking certID:
// it is either free or already bound to that same certificate.
func (a Account) EligibleFor(certID string) bool {
	return a.CertificateID == "" || a.CertificateID == certID
}

// CreateParams contains parameters for registering an account
type CreateParams struct {
	ID            string
	ClientID      string
	BankName      string
	BankCode      string
	AccountNumber string
	AccountHolder string
	AccountType   Type
	Balance       *decimal.Decimal
	CertificateID string
}

// Validate validates the create parameters
func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("account ID is required")
	}
	if strings.TrimSpace(p.ClientID) == "" {
		return errors.New("client ID is required")
	}
	if p.BankName == "" || p.BankCode == "" {
		return errors.New("bank name and code are required")
	}
	if p.AccountNumber == "" {
		return errors.New("account number is required")
	}
	if !IsValidAccountType(p.AccountType) {
		return ErrInvalidAccountType
	}
	if p.Balance != nil && p.Balance.IsNegative() && p.AccountType != TypeChecking {
		return errors.New("only checking accounts may carry a negative balance")
	}
	return nil
}

// LinkParams describes binding a set of accounts to one certificate
type LinkParams struct {
	CertificateID string
	AccountIDs    []string
	// Replace unlinks accounts currently bound to CertificateID that are not in AccountIDs.
	Replace bool
}

// Validate validates the link parameters
func (p LinkParams) Validate() error {
	if p.CertificateID == "" {
		return errors.New("certificate ID is required")
	}
	if len(p.AccountIDs) == 0 {
		return ErrInvalidInput
	}
	seen := make(map[string]struct{}, len(p.AccountIDs))
	for _, id := range p.AccountIDs {
		if id == "" {
			return ErrInvalidInput
		}
		if _, dup := seen[id]; dup {
			return ErrInvalidInput
		}
		seen[id] = struct{}{}
	}
	return nil
}

// IsValidAccountType checks if the provided account type is valid.
func IsValidAccountType(t Type) bool {
	_, ok := accountTypes[t]
	return ok
}
