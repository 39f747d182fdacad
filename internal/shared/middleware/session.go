package middleware

import (
	"net/http"
	"strings"

	"brokerlink/internal/shared/auth"
	"brokerlink/internal/shared/logger"
)

// TokenValidator resolves a session token to a principal.
type TokenValidator interface {
	Validate(token string) (*auth.Principal, error)
}

// Session attaches the principal for a valid access_token cookie or Bearer
// header. It never rejects a request; handlers decide through auth.Verify.
func Session(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			p, err := v.Validate(token)
			if err != nil {
				logger.Ctx(r.Context()).Debug().Err(err).Msg("session token rejected")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func sessionToken(r *http.Request) string {
	// HttpOnly cookie first (browser requests)
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
