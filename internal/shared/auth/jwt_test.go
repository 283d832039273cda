package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	j := NewJWT("my-secret-key")

	token, err := j.Generate("op-123", "ops@finnest.ai")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	claims, err := j.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if claims.OperatorID != "op-123" {
		t.Errorf("Validate() got OperatorID %s, want op-123", claims.OperatorID)
	}
	if claims.Email != "ops@finnest.ai" {
		t.Errorf("Validate() got Email %s, want ops@finnest.ai", claims.Email)
	}

	// Tampered signature
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".invalid-signature"
	if _, err := j.Validate(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() tampered signature: got %v, want ErrInvalidToken", err)
	}

	if _, err := j.Validate("invalid.token"); err == nil {
		t.Error("Validate() accepted invalid format")
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Generate("op-1", "ops@finnest.ai")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if _, err := NewJWT("secret-b").Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() with wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestJWT_ExpiredToken(t *testing.T) {
	j := NewJWT("my-secret-key")
	j.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }

	token, err := j.Generate("op-1", "expired@finnest.ai")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	j.now = time.Now
	if _, err := j.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() returned wrong error for expired token: %v", err)
	}
}

func TestDomainAllowList(t *testing.T) {
	list := NewDomainAllowList([]string{" Finnest.AI ", "@partner.co.kr", "finnest.ai", ""})

	if got := list.Domains(); len(got) != 2 {
		t.Fatalf("Domains() = %v, want 2 entries", got)
	}

	tests := []struct {
		email string
		want  bool
	}{
		{"ops@finnest.ai", true},
		{"OPS@FINNEST.AI", true},
		{"kim@partner.co.kr", true},
		{"ops@evil.com", false},
		{"ops@sub.finnest.ai", false},
		{"no-at-sign", false},
		{"trailing@", false},
	}
	for _, tt := range tests {
		if got := list.Allowed(tt.email); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}

	if NewDomainAllowList(nil).Allowed("ops@finnest.ai") {
		t.Error("empty allow-list admitted an operator")
	}
}
