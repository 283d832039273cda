package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"certlink/internal/domain/certificate"
	"certlink/internal/domain/operator"
	"certlink/internal/domain/workspace"
	"certlink/internal/shared/auth"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := promptConfirmer{in: bufio.NewReader(strings.NewReader(tt.input)), out: &out}
			got, err := p.Confirm(context.Background(), "Delete?")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if out.String() != "Delete? [y/N]: " {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestPromptConfirmer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := promptConfirmer{in: bufio.NewReader(strings.NewReader("y\n")), out: &bytes.Buffer{}}
	if ok, err := p.Confirm(ctx, "Delete?"); ok || err == nil {
		t.Errorf("Confirm = %v, %v; want false with error", ok, err)
	}
}

type fakeDeleter struct {
	calls int
	err   error
}

func (f *fakeDeleter) DeleteCertificate(_ context.Context, id string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []string{"acc-1"}, nil
}

func answer(ok bool) workspace.Confirmer {
	return workspace.ConfirmFunc(func(context.Context, string) (bool, error) { return ok, nil })
}

func TestDeleteCertificate(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		d := &fakeDeleter{}
		deleted, _, err := deleteCertificate(context.Background(), d, "cert-1", answer(false))
		if err != nil || deleted || d.calls != 0 {
			t.Errorf("deleted=%v err=%v calls=%d", deleted, err, d.calls)
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		d := &fakeDeleter{}
		deleted, unlinked, err := deleteCertificate(context.Background(), d, "cert-1", answer(true))
		if err != nil || !deleted || len(unlinked) != 1 {
			t.Errorf("deleted=%v unlinked=%v err=%v", deleted, unlinked, err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		d := &fakeDeleter{err: certificate.ErrCertificateNotFound}
		_, _, err := deleteCertificate(context.Background(), d, "nope", answer(true))
		if !errors.Is(err, certificate.ErrCertificateNotFound) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("s3cret\r\nignored"))
	if err != nil || pw != "s3cret" {
		t.Errorf("readPassword = %q, %v", pw, err)
	}

	if _, err := readPassword(strings.NewReader("")); !errors.Is(err, operator.ErrPasswordRequired) {
		t.Errorf("empty input err = %v", err)
	}
}

func TestRunHashPassword(t *testing.T) {
	var out bytes.Buffer
	runHashPassword(strings.NewReader("s3cret\n"), &out)

	hash := strings.TrimSpace(out.String())
	if err := auth.VerifyPassword(hash, "s3cret"); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}

func TestPrintExpiring(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var out bytes.Buffer

	printExpiring(&out, &certificate.Certificate{ID: "cert-1", ClientID: "1", Name: "corp", ExpiresAt: now.Add(-time.Hour)}, now)
	printExpiring(&out, &certificate.Certificate{ID: "cert-2", ClientID: "1", Name: "kim", ExpiresAt: now.Add(72 * time.Hour)}, now)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "EXPIRED") {
		t.Errorf("expired line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "in 3 day(s)") || !strings.Contains(lines[1], "2025-01-04") {
		t.Errorf("expiring line = %q", lines[1])
	}
}

func TestUsage_SingleTrailingNewline(t *testing.T) {
	if !strings.HasSuffix(usage, "\n") || strings.HasSuffix(usage, "\n\n") {
		t.Errorf("usage should end with exactly one newline, got %q", usage[len(usage)-10:])
	}
}
