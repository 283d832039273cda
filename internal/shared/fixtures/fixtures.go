package fixtures

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
	"certlink/internal/domain/operator"
)

//go:embed sample.yaml
var sampleYAML []byte

type Certificate struct {
	ID           string    `yaml:"id"`
	ClientID     string    `yaml:"clientId"`
	Name         string    `yaml:"name"`
	Issuer       string    `yaml:"issuer"`
	RegisteredAt time.Time `yaml:"registeredAt"`
	ExpiresAt    time.Time `yaml:"expiresAt"`
	Type         string    `yaml:"type"`
}

type Account struct {
	ID            string `yaml:"id"`
	ClientID      string `yaml:"clientId"`
	BankName      string `yaml:"bankName"`
	BankCode      string `yaml:"bankCode"`
	AccountNumber string `yaml:"accountNumber"`
	AccountHolder string `yaml:"accountHolder"`
	AccountType   string `yaml:"accountType"`
	Balance       string `yaml:"balance"`
	CertificateID string `yaml:"certificateId"`
}

type Operator struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// Set is one fixture document
type Set struct {
	Clients      []client.Client `yaml:"clients"`
	Certificates []Certificate   `yaml:"certificates"`
	Accounts     []Account       `yaml:"accounts"`
	Operators    []Operator      `yaml:"operators"`
}

var (
	sample     *Set
	sampleOnce sync.Once
	sampleErr  error
)

// Sample returns the embedded development data set. Safe to call from multiple goroutines.
func Sample() (*Set, error) {
	sampleOnce.Do(func() {
		sample, sampleErr = Parse(sampleYAML)
	})
	return sample, sampleErr
}

// Load reads a fixture file; an empty path yields the embedded sample
func Load(path string) (*Set, error) {
	if path == "" {
		return Sample()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document and checks that every reference resolves within it
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Set) validate() error {
	clients := make(map[string]bool, len(s.Clients))
	for _, c := range s.Clients {
		if c.ID == "" {
			return errors.New("fixture client without id")
		}
		clients[c.ID] = true
	}

	certOwner := make(map[string]string, len(s.Certificates))
	for _, c := range s.Certificates {
		if !clients[c.ClientID] {
			return fmt.Errorf("certificate %s references unknown client %q", c.ID, c.ClientID)
		}
		certOwner[c.ID] = c.ClientID
	}

	for _, a := range s.Accounts {
		if !clients[a.ClientID] {
			return fmt.Errorf("account %s references unknown client %q", a.ID, a.ClientID)
		}
		if a.CertificateID == "" {
			continue
		}
		owner, ok := certOwner[a.CertificateID]
		if !ok {
			return fmt.Errorf("account %s references unknown certificate %q", a.ID, a.CertificateID)
		}
		if owner != a.ClientID {
			return fmt.Errorf("account %s and certificate %s belong to different clients", a.ID, a.CertificateID)
		}
	}
	return nil
}

// Stores are the write paths seeding goes through
type Stores struct {
	Clients      ClientWriter
	Certificates CertificateWriter
	Accounts     AccountWriter
	// Operators is optional; operator fixtures are skipped when nil
	Operators OperatorProvisioner
}

type ClientWriter interface {
	Upsert(ctx context.Context, c client.Client) error
}

type CertificateWriter interface {
	GetByID(ctx context.Context, id string) (*certificate.Certificate, error)
	Create(ctx context.Context, params certificate.CreateParams) (*certificate.Certificate, error)
}

type AccountWriter interface {
	UpsertAccount(ctx context.Context, params account.CreateParams) (*account.Account, error)
}

type OperatorProvisioner interface {
	Provision(ctx context.Context, email, name, password string) (*operator.Operator, error)
}

// Seed writes the set in dependency order. Existing certificates are left untouched
// so seeding twice is harmless.
func Seed(ctx context.Context, set *Set, stores Stores) error {
	for _, c := range set.Clients {
		if err := stores.Clients.Upsert(ctx, c); err != nil {
			return fmt.Errorf("failed to seed client %s: %w", c.ID, err)
		}
	}

	for _, c := range set.Certificates {
		_, err := stores.Certificates.GetByID(ctx, c.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, certificate.ErrCertificateNotFound) {
			return fmt.Errorf("failed to check certificate %s: %w", c.ID, err)
		}
		params := certificate.CreateParams{
			ID:           c.ID,
			ClientID:     c.ClientID,
			Name:         c.Name,
			Issuer:       c.Issuer,
			RegisteredAt: c.RegisteredAt,
			ExpiresAt:    c.ExpiresAt,
			Type:         certificate.Type(c.Type),
		}
		if err := params.Validate(); err != nil {
			return fmt.Errorf("invalid certificate fixture %s: %w", c.ID, err)
		}
		if _, err := stores.Certificates.Create(ctx, params); err != nil {
			return fmt.Errorf("failed to seed certificate %s: %w", c.ID, err)
		}
	}

	for _, a := range set.Accounts {
		params := account.CreateParams{
			ID:            a.ID,
			ClientID:      a.ClientID,
			BankName:      a.BankName,
			BankCode:      a.BankCode,
			AccountNumber: a.AccountNumber,
			AccountHolder: a.AccountHolder,
			AccountType:   account.Type(a.AccountType),
			CertificateID: a.CertificateID,
		}
		if a.Balance != "" {
			balance, err := decimal.NewFromString(a.Balance)
			if err != nil {
				return fmt.Errorf("invalid balance for account %s: %w", a.ID, err)
			}
			params.Balance = &balance
		}
		if _, err := stores.Accounts.UpsertAccount(ctx, params); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", a.ID, err)
		}
	}

	if stores.Operators != nil {
		for _, o := range set.Operators {
			if _, err := stores.Operators.Provision(ctx, o.Email, o.Name, o.Password); err != nil {
				return fmt.Errorf("failed to seed operator %s: %w", o.Email, err)
			}
		}
	}

	log.Info().
		Int("clients", len(set.Clients)).
		Int("certificates", len(set.Certificates)).
		Int("accounts", len(set.Accounts)).
		Msg("fixtures seeded")
	return nil
}
