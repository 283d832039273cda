package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRedirectServer(t *testing.T) {
	srv := createRedirectServer([]string{"admin.finnest.ai"})

	tests := []struct {
		name       string
		target     string
		host       string
		wantStatus int
		wantLoc    string
	}{
		{"origin form", "/api/clients?x=1", "admin.finnest.ai", http.StatusMovedPermanently, "https://admin.finnest.ai/api/clients?x=1"},
		{"absolute form", "http://admin.finnest.ai/api/clients", "admin.finnest.ai", http.StatusMovedPermanently, "https://admin.finnest.ai/api/clients"},
		{"port dropped", "/health", "admin.finnest.ai:80", http.StatusMovedPermanently, "https://admin.finnest.ai/health"},
		{"unknown host", "/api/clients", "evil.example", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Host = tt.host
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if loc := rr.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
			}
		})
	}
}
