package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"certlink/internal/shared/auth"
)

func TestAuth(t *testing.T) {
	jwt := auth.NewJWT("test-secret")
	validToken, _ := jwt.Generate("op-1", "ops@finnest.ai")

	tests := []struct {
		name           string
		setupRequest   func(r *http.Request)
		expectedStatus int
		expectedUser   bool
	}{
		{
			name: "Valid Token in Cookie",
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: SessionCookie, Value: validToken})
			},
			expectedStatus: http.StatusOK,
			expectedUser:   true,
		},
		{
			name: "Valid Token in Header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+validToken)
			},
			expectedStatus: http.StatusOK,
			expectedUser:   true,
		},
		{
			name:           "No Token",
			setupRequest:   func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Malformed Header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Token "+validToken)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid Token",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer invalid")
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Token Signed With Other Secret",
			setupRequest: func(r *http.Request) {
				other, _ := auth.NewJWT("other-secret").Generate("op-1", "ops@finnest.ai")
				r.Header.Set("Authorization", "Bearer "+other)
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				op, ok := Operator(r.Context())
				if !ok && tt.expectedUser {
					t.Error("Expected operator in context, got none")
				}
				if ok && !tt.expectedUser {
					t.Error("Unexpected operator in context")
				}
				if ok && (op.ID != "op-1" || op.Email != "ops@finnest.ai") {
					t.Errorf("Operator = %+v, want op-1/ops@finnest.ai", op)
				}
				w.WriteHeader(http.StatusOK)
			})

			handler := Auth(jwt)(nextHandler)

			req := httptest.NewRequest("GET", "/", nil)
			tt.setupRequest(req)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestRequireDomain(t *testing.T) {
	allow := auth.NewDomainAllowList([]string{"finnest.ai"})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireDomain(allow)(next)

	tests := []struct {
		name   string
		email  string
		status int
	}{
		{"allowed domain", "ops@finnest.ai", http.StatusOK},
		{"allowed domain uppercase", "Ops@FINNEST.AI", http.StatusOK},
		{"other domain", "ops@gmail.com", http.StatusForbidden},
		{"lookalike domain", "ops@finnest.ai.evil.com", http.StatusForbidden},
		{"unauthenticated", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/workspace", nil)
			if tt.email != "" {
				req = req.WithContext(WithOperator(req.Context(), AuthenticatedOperator{ID: "op-1", Email: tt.email}))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
		})
	}
}
