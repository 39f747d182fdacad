package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const defaultTokenTTL = 24 * time.Hour

// Claims are the session claims issued by the identity provider. The subject
// is the principal id used as the user id everywhere in this service.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWT validates HS256 session tokens shared with the identity provider.
type JWT struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewJWT(secret, issuer, audience string) *JWT {
	return &JWT{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      defaultTokenTTL,
	}
}

// Generate signs a token for userID. Used by the admin CLI to mint operator
// tokens; end-user sessions come from the identity provider.
func (j *JWT) Generate(userID, email string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	if j.issuer != "" {
		claims.Issuer = j.issuer
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses token and returns the principal it identifies.
func (j *JWT) Validate(token string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Principal{UserID: claims.Subject, Email: claims.Email}, nil
}
