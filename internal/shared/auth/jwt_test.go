package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signClaims(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestJWT_GenerateAndValidate(t *testing.T) {
	j := NewJWT("my-secret-key", "", "")

	token, err := j.Generate("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	p, err := j.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if p.UserID != "user-123" {
		t.Errorf("Validate() UserID = %q, want %q", p.UserID, "user-123")
	}
	if p.Email != "test@example.com" {
		t.Errorf("Validate() Email = %q, want %q", p.Email, "test@example.com")
	}
}

func TestJWT_GenerateRequiresUser(t *testing.T) {
	if _, err := NewJWT("secret", "", "").Generate("", ""); err == nil {
		t.Error("Generate() accepted an empty user id")
	}
}

func TestJWT_ValidateRejects(t *testing.T) {
	secret := "my-secret-key"
	j := NewJWT(secret, "idp", "brokerlink")

	valid := func() Claims {
		return Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "idp",
			Audience:  jwt.ClaimStrings{"brokerlink"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
	}

	good := signClaims(t, secret, jwt.SigningMethodHS256, valid())
	parts := strings.Split(good, ".")

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"

	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"other-app"}

	noSubject := valid()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"tampered signature", parts[0] + "." + parts[1] + ".invalid-signature"},
		{"malformed", "invalid.token"},
		{"wrong secret", signClaims(t, "other-secret", jwt.SigningMethodHS256, valid())},
		{"wrong algorithm", signClaims(t, secret, jwt.SigningMethodHS512, valid())},
		{"expired", signClaims(t, secret, jwt.SigningMethodHS256, expired)},
		{"missing expiry", signClaims(t, secret, jwt.SigningMethodHS256, noExpiry)},
		{"wrong issuer", signClaims(t, secret, jwt.SigningMethodHS256, wrongIssuer)},
		{"wrong audience", signClaims(t, secret, jwt.SigningMethodHS256, wrongAudience)},
		{"missing subject", signClaims(t, secret, jwt.SigningMethodHS256, noSubject)},
	}

	if _, err := j.Validate(good); err != nil {
		t.Fatalf("Validate() rejected a valid token: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Validate(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
