package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsHostAllowed(t *testing.T) {
	tests := []struct {
		name         string
		host         string
		allowedHosts []string
		want         bool
	}{
		{"empty allowed hosts returns true", "example.com", nil, true},
		{"exact match with port", "example.com:8080", []string{"example.com:8080"}, true},
		{"host without port matches allowed with port", "example.com", []string{"example.com:8080"}, true},
		{"host with port matches allowed without port", "example.com:8080", []string{"example.com"}, true},
		{"IPv6 loopback with port", "[::1]:8080", []string{"[::1]:8080"}, true},
		{"IPv6 without port matches allowed with port", "::1", []string{"[::1]:8080"}, true},
		{"IPv6 with port matches allowed without port", "[::1]:8080", []string{"::1"}, true},
		{"IPv6 link-local with zone", "[fe80::1%lo0]:8080", []string{"fe80::1%lo0"}, true},
		{"case insensitive", "Example.COM:8080", []string{"example.com"}, true},
		{"whitespace on both sides", "  example.com:8080  ", []string{"  example.com  "}, true},
		{"match second in list", "app.example.com", []string{"example.com", "app.example.com"}, true},
		{"no match", "evil.com", []string{"example.com", "app.example.com"}, false},
		{"subdomain mismatch", "sub.example.com", []string{"example.com"}, false},
		{"IPv6 different address", "[::2]:8080", []string{"[::1]:8080"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHostAllowed(tt.host, tt.allowedHosts); got != tt.want {
				t.Errorf("IsHostAllowed(%q, %v) = %v, want %v", tt.host, tt.allowedHosts, got, tt.want)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name      string
		tls       bool
		path      string
		wantHSTS  bool
		wantCache string
	}{
		{"api without tls", false, "/api/brokerage/holdings", false, "no-store"},
		{"api with tls", true, "/api/brokerage/connect", true, "no-store"},
		{"health with tls", true, "/health", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			SecurityHeaders(tt.tls)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
				ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			h := rr.Header()
			if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
			if got := h.Get("Referrer-Policy"); got != "no-referrer" {
				t.Errorf("Referrer-Policy = %q", got)
			}
			if got := h.Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantCache)
			}
			hsts := h.Get("Strict-Transport-Security")
			if tt.wantHSTS && !strings.HasPrefix(hsts, "max-age=31536000") {
				t.Errorf("Strict-Transport-Security = %q", hsts)
			}
			if !tt.wantHSTS && hsts != "" {
				t.Errorf("unexpected Strict-Transport-Security %q", hsts)
			}
		})
	}
}

func TestSecureCookies(t *testing.T) {
	handler := SecureCookies(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "access_token=abc; Path=/")
		w.Header().Add("Set-Cookie", "pref=1; Secure; SameSite=Strict")
		w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rr.Header().Values("Set-Cookie")
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	if want := "access_token=abc; Path=/; Secure; HttpOnly; SameSite=Lax"; cookies[0] != want {
		t.Errorf("cookie[0] = %q, want %q", cookies[0], want)
	}
	if want := "pref=1; Secure; SameSite=Strict; HttpOnly"; cookies[1] != want {
		t.Errorf("cookie[1] = %q, want %q", cookies[1], want)
	}
}
