package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"brokerlink/internal/shared/auth"
)

func TestSession(t *testing.T) {
	jwt := auth.NewJWT("test-secret", "", "")
	validToken, _ := jwt.Generate("user-1", "test@example.com")

	tests := []struct {
		name         string
		setupRequest func(r *http.Request)
		expectedUser string
	}{
		{
			name: "Valid Token in Cookie",
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: validToken})
			},
			expectedUser: "user-1",
		},
		{
			name: "Valid Token in Header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+validToken)
			},
			expectedUser: "user-1",
		},
		{
			name:         "No Token",
			setupRequest: func(r *http.Request) {},
		},
		{
			name: "Invalid Token",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer invalid")
			},
		},
		{
			name: "Wrong Scheme",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic "+validToken)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				p, ok := auth.PrincipalFromContext(r.Context())
				if tt.expectedUser == "" && ok {
					t.Errorf("unexpected principal %q in context", p.UserID)
				}
				if tt.expectedUser != "" && (!ok || p.UserID != tt.expectedUser) {
					t.Errorf("expected principal %q in context, got %v", tt.expectedUser, p)
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setupRequest(req)
			rr := httptest.NewRecorder()

			Session(jwt)(nextHandler).ServeHTTP(rr, req)

			if !called {
				t.Fatal("Session() must always call the next handler")
			}
			if rr.Code != http.StatusOK {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
			}
		})
	}
}
