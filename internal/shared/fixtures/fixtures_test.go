package fixtures

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
	"certlink/internal/domain/operator"
)

func TestSample(t *testing.T) {
	set, err := Sample()
	if err != nil {
		t.Fatalf("Sample() failed: %v", err)
	}

	if len(set.Clients) != 2 || set.Clients[0].ID != "1" || set.Clients[1].BusinessNumber != "987-65-43210" {
		t.Errorf("unexpected clients: %+v", set.Clients)
	}
	if len(set.Certificates) != 2 {
		t.Fatalf("got %d certificates, want 2", len(set.Certificates))
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !set.Certificates[0].RegisteredAt.Equal(want) {
		t.Errorf("cert-1 registeredAt = %v, want %v", set.Certificates[0].RegisteredAt, want)
	}
	if len(set.Accounts) != 3 || set.Accounts[0].CertificateID != "cert-1" || set.Accounts[1].CertificateID != "" {
		t.Errorf("unexpected accounts: %+v", set.Accounts)
	}
	if set.Accounts[0].BankCode != "004" {
		t.Errorf("bank code = %q, leading zeros must survive", set.Accounts[0].BankCode)
	}

	again, _ := Sample()
	if again != set {
		t.Error("Sample() should cache the parsed set")
	}
}

func TestParse_RejectsDanglingReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "certificate of unknown client",
			doc: `
clients: [{id: "1", name: a}]
certificates: [{id: c, clientId: "9", type: corporate}]`,
			want: "unknown client",
		},
		{
			name: "account linked to unknown certificate",
			doc: `
clients: [{id: "1", name: a}]
accounts: [{id: x, clientId: "1", certificateId: nope}]`,
			want: "unknown certificate",
		},
		{
			name: "account linked across clients",
			doc: `
clients: [{id: "1", name: a}, {id: "2", name: b}]
certificates: [{id: c, clientId: "1", type: corporate}]
accounts: [{id: x, clientId: "2", certificateId: c}]`,
			want: "different clients",
		},
		{
			name: "not yaml",
			doc:  "clients: [",
			want: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

type fakeStores struct {
	clients      map[string]client.Client
	certificates map[string]certificate.CreateParams
	accounts     map[string]account.CreateParams
	operators    []string
	creates      int
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		clients:      map[string]client.Client{},
		certificates: map[string]certificate.CreateParams{},
		accounts:     map[string]account.CreateParams{},
	}
}

func (f *fakeStores) Upsert(ctx context.Context, c client.Client) error {
	f.clients[c.ID] = c
	return nil
}

func (f *fakeStores) GetByID(ctx context.Context, id string) (*certificate.Certificate, error) {
	if p, ok := f.certificates[id]; ok {
		return &certificate.Certificate{ID: p.ID, ClientID: p.ClientID}, nil
	}
	return nil, certificate.ErrCertificateNotFound
}

func (f *fakeStores) Create(ctx context.Context, p certificate.CreateParams) (*certificate.Certificate, error) {
	f.creates++
	f.certificates[p.ID] = p
	return &certificate.Certificate{ID: p.ID}, nil
}

type accountWriter struct{ f *fakeStores }

func (w accountWriter) UpsertAccount(ctx context.Context, p account.CreateParams) (*account.Account, error) {
	w.f.accounts[p.ID] = p
	return &account.Account{ID: p.ID}, nil
}

type provisioner struct{ f *fakeStores }

func (p provisioner) Provision(ctx context.Context, email, name, password string) (*operator.Operator, error) {
	if password == "" {
		return nil, operator.ErrPasswordRequired
	}
	p.f.operators = append(p.f.operators, email)
	return &operator.Operator{Email: email}, nil
}

func TestSeed(t *testing.T) {
	set, err := Sample()
	if err != nil {
		t.Fatalf("Sample() failed: %v", err)
	}

	f := newFakeStores()
	stores := Stores{Clients: f, Certificates: f, Accounts: accountWriter{f}, Operators: provisioner{f}}

	if err := Seed(context.Background(), set, stores); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	if len(f.clients) != 2 || len(f.certificates) != 2 || len(f.accounts) != 3 {
		t.Errorf("seeded %d clients, %d certificates, %d accounts", len(f.clients), len(f.certificates), len(f.accounts))
	}
	if f.certificates["cert-2"].Type != certificate.TypeIndividual {
		t.Errorf("cert-2 type = %q", f.certificates["cert-2"].Type)
	}
	acc1 := f.accounts["acc-1"]
	if acc1.CertificateID != "cert-1" || acc1.Balance == nil || acc1.Balance.String() != "50000000" {
		t.Errorf("acc-1 = %+v", acc1)
	}
	if len(f.operators) != 1 || f.operators[0] != "ops@finnest.ai" {
		t.Errorf("operators = %v", f.operators)
	}

	if err := Seed(context.Background(), set, stores); err != nil {
		t.Fatalf("second Seed() failed: %v", err)
	}
	if f.creates != 2 {
		t.Errorf("certificates created %d times, want 2", f.creates)
	}
}

func TestSeed_InvalidBalance(t *testing.T) {
	set := &Set{
		Clients:  []client.Client{{ID: "1", Name: "a"}},
		Accounts: []Account{{ID: "x", ClientID: "1", BankName: "b", BankCode: "1", AccountNumber: "1", AccountType: "deposit", Balance: "lots"}},
	}
	f := newFakeStores()
	err := Seed(context.Background(), set, Stores{Clients: f, Certificates: f, Accounts: accountWriter{f}})
	if err == nil || !strings.Contains(err.Error(), "invalid balance") {
		t.Errorf("Seed() error = %v, want invalid balance", err)
	}
}

type failingClients struct{}

func (failingClients) Upsert(ctx context.Context, c client.Client) error {
	return errors.New("disk full")
}

func TestSeed_StoreError(t *testing.T) {
	set, _ := Sample()
	f := newFakeStores()
	err := Seed(context.Background(), set, Stores{Clients: failingClients{}, Certificates: f, Accounts: accountWriter{f}})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Seed() error = %v, want store error", err)
	}
}

type accountRepo struct {
	account.Repository
	upserts int
}

func (r *accountRepo) Upsert(ctx context.Context, p account.CreateParams) (*account.Account, error) {
	r.upserts++
	return &account.Account{ID: p.ID}, nil
}

func TestSeed_AccountsValidatedByService(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr error
	}{
		{"unknown type", Account{ID: "x", ClientID: "1", BankName: "b", BankCode: "1", AccountNumber: "1", AccountType: "bond"}, account.ErrInvalidAccountType},
		{"negative savings", Account{ID: "x", ClientID: "1", BankName: "b", BankCode: "1", AccountNumber: "1", AccountType: "savings", Balance: "-10"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &accountRepo{}
			f := newFakeStores()
			set := &Set{Clients: []client.Client{{ID: "1", Name: "a"}}, Accounts: []Account{tt.account}}

			err := Seed(context.Background(), set, Stores{Clients: f, Certificates: f, Accounts: account.NewService(repo)})
			if err == nil {
				t.Fatal("Seed() accepted an invalid account")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Seed() error = %v, want %v", err, tt.wantErr)
			}
			if repo.upserts != 0 {
				t.Errorf("repository written %d times", repo.upserts)
			}
		})
	}
}
