package aggregator

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

var (
	ErrUninitialized          = errors.New("aggregator client is not configured")
	ErrAlreadyRegistered      = errors.New("aggregator user already registered")
	ErrPortalGenerationFailed = errors.New("aggregator did not return a connection portal")
	ErrNotFound               = errors.New("aggregator resource not found")
	ErrUnauthorized           = errors.New("aggregator rejected the request credentials")
	ErrRateLimited            = errors.New("aggregator rate limit exceeded")
)

// Kind is the internal classification of a vendor error.
type Kind int

const (
	KindUnknown Kind = iota
	KindAlreadyExists
	KindNotFound
	KindUnauthorized
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// APIError is a non-2xx vendor response.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
	Kind       Kind
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("aggregator error (status %d, code %s): %s", e.StatusCode, e.Code, e.Detail)
	}
	return fmt.Sprintf("aggregator error (status %d): %s", e.StatusCode, e.Detail)
}

// Is lets callers match the sentinel for the error's kind.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAlreadyRegistered:
		return e.Kind == KindAlreadyExists
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// Detail returns the most specific vendor text carried by err, or err.Error().
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

// codeUserAlreadyExists is the vendor's documented code for a taken user id.
const codeUserAlreadyExists = "1010"

// alreadyExistsPattern covers vendor payloads that predate the error code.
var alreadyExistsPattern = regexp.MustCompile(`(?i)already\s+exist`)

// classify maps a vendor response onto Kind. All knowledge of vendor error
// payloads lives here.
func classify(status int, code, detail string) Kind {
	switch {
	case code == codeUserAlreadyExists:
		return KindAlreadyExists
	case (status == http.StatusBadRequest || status == http.StatusConflict) && alreadyExistsPattern.MatchString(detail):
		return KindAlreadyExists
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUnknown
	}
}
