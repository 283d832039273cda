package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouteTemplate(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/certificates", "/api/certificates"},
		{"/api/certificates/", "/api/certificates/"},
		{"/api/certificates/cert-1", "/api/certificates/{id}"},
		{"/api/certificates/cert-1/link", "/api/certificates/{id}/link"},
		{"/api/certificates/refresh", "/api/certificates/refresh"},
		{"/api/accounts/refresh", "/api/accounts/refresh"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		if got := RouteTemplate(tt.path); got != tt.want {
			t.Errorf("RouteTemplate(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestTracing_PassesThrough(t *testing.T) {
	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/certificates/cert-1", nil))

	if rr.Code != http.StatusTeapot || rr.Body.String() != "short and stout" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
}
