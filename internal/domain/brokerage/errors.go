// Package brokerage implements the connect, callback and disconnect workflows
// that tie the aggregator, the secret store and holdings sync together.
package brokerage

import (
	"errors"

	"brokerlink/internal/infrastructure/aggregator"
)

// Domain errors
var (
	ErrRecoveryExhausted    = errors.New("could not recover aggregator user secret")
	ErrLinkGenerationFailed = errors.New("failed to generate connection link")
)

// Callback outcome codes carried in the dashboard redirect.
const (
	CodeConnectionFailed = "connection_failed"
	CodeUnauthorized     = "unauthorized"
	CodeIdentityMismatch = "identity_mismatch"
	CodeActivationFailed = "activation_failed"
	CodeSyncFailed       = "sync_failed"
)

// CallbackError is a failed callback with the code shown to the browser.
type CallbackError struct {
	Code string
	Err  error
}

func (e *CallbackError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *CallbackError) Unwrap() error { return e.Err }

// mostSpecific picks the latest error that carries vendor detail, or the
// latest error at all.
func mostSpecific(errs ...error) error {
	var last error
	for i := len(errs) - 1; i >= 0; i-- {
		if errs[i] == nil {
			continue
		}
		var apiErr *aggregator.APIError
		if errors.As(errs[i], &apiErr) {
			return errs[i]
		}
		if last == nil {
			last = errs[i]
		}
	}
	return last
}
