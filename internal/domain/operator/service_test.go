package operator

import (
	"context"
	"errors"
	"testing"
)

// MockRepository is a mock implementation of Repository interface
type MockRepository struct {
	GetByEmailFunc func(ctx context.Context, email string) (*Operator, error)
	UpsertFunc     func(ctx context.Context, params CreateParams) (*Operator, error)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*Operator, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, ErrOperatorNotFound
}

func (m *MockRepository) Upsert(ctx context.Context, params CreateParams) (*Operator, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return &Operator{ID: params.ID, Email: params.Email, Name: params.Name, PasswordHash: params.PasswordHash}, nil
}

// plainHasher stores passwords with a marker prefix
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type domainFunc func(email string) bool

func (f domainFunc) Allowed(email string) bool { return f(email) }

func finnestOnly(email string) bool { return EmailDomain(email) == "finnest.ai" }

func TestAuthenticate(t *testing.T) {
	stored := &Operator{ID: "op-1", Email: "ops@finnest.ai", Name: "Ops", PasswordHash: "hashed:secret"}
	repo := &MockRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*Operator, error) {
			if email == stored.Email {
				return stored, nil
			}
			return nil, ErrOperatorNotFound
		},
	}
	svc := NewService(repo, plainHasher{}, domainFunc(finnestOnly))

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "ops@finnest.ai", password: "secret"},
		{name: "email is normalized", email: "  OPS@Finnest.ai ", password: "secret"},
		{name: "wrong password", email: "ops@finnest.ai", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown operator", email: "who@finnest.ai", password: "secret", wantErr: ErrInvalidCredentials},
		{name: "foreign domain", email: "ops@evil.com", password: "secret", wantErr: ErrDomainNotAllowed},
		{name: "missing email", email: " ", password: "secret", wantErr: ErrEmailRequired},
		{name: "missing password", email: "ops@finnest.ai", password: "", wantErr: ErrPasswordRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() unexpected error: %v", err)
			}
			if op.ID != "op-1" {
				t.Errorf("Authenticate() got operator %s, want op-1", op.ID)
			}
		})
	}
}

func TestAuthenticate_RepositoryError(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := &MockRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*Operator, error) {
			return nil, dbErr
		},
	}
	svc := NewService(repo, plainHasher{}, domainFunc(finnestOnly))

	if _, err := svc.Authenticate(context.Background(), "ops@finnest.ai", "secret"); !errors.Is(err, dbErr) {
		t.Errorf("Authenticate() error = %v, want %v", err, dbErr)
	}
}

func TestProvision(t *testing.T) {
	var saved CreateParams
	repo := &MockRepository{
		UpsertFunc: func(ctx context.Context, params CreateParams) (*Operator, error) {
			saved = params
			return &Operator{ID: params.ID, Email: params.Email}, nil
		},
	}
	svc := NewService(repo, plainHasher{}, domainFunc(finnestOnly))

	op, err := svc.Provision(context.Background(), "Admin@Finnest.ai", "Admin", "pw")
	if err != nil {
		t.Fatalf("Provision() unexpected error: %v", err)
	}
	if op.ID == "" || saved.ID == "" {
		t.Error("Provision() did not assign an id")
	}
	if saved.Email != "admin@finnest.ai" {
		t.Errorf("Provision() stored email %q", saved.Email)
	}
	if saved.PasswordHash != "hashed:pw" {
		t.Errorf("Provision() stored hash %q", saved.PasswordHash)
	}

	if _, err := svc.Provision(context.Background(), "x@evil.com", "X", "pw"); !errors.Is(err, ErrDomainNotAllowed) {
		t.Errorf("Provision() foreign domain error = %v", err)
	}
}

func TestEmailDomain(t *testing.T) {
	tests := map[string]string{
		"ops@Finnest.AI": "finnest.ai",
		"a@b@c.com":      "c.com",
		"plain":          "",
	}
	for in, want := range tests {
		if got := EmailDomain(in); got != want {
			t.Errorf("EmailDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
