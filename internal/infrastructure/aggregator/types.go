package aggregator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Identity is the vendor-held user. UserSecret may be empty when the vendor
// acknowledges the user without issuing a secret.
type Identity struct {
	UserID     string `json:"userId"`
	UserSecret string `json:"userSecret"`
}

// LoginOptions configure the connection portal.
type LoginOptions struct {
	BrokerID    string
	RedirectURI string
}

// Portal is a single-use connection portal.
type Portal struct {
	RedirectURI string `json:"redirectURI"`
	SessionID   string `json:"sessionId"`
}

// Account is a brokerage account visible to the vendor user.
type Account struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Number          string         `json:"number"`
	InstitutionName string         `json:"institutionName"`
	AuthorizationID string         `json:"brokerageAuthorization"`
	Balance         AccountBalance `json:"balance"`
}

// AccountBalance is the vendor's {amount, currency} pair.
type AccountBalance struct {
	Amount   Numeric `json:"amount"`
	Currency string  `json:"currency"`
}

// Position is a security holding line. Numeric fields arrive as strings.
type Position struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Quantity    Numeric `json:"quantity"`
	Price       Numeric `json:"price"`
	BookValue   Numeric `json:"bookValue"`
	Currency    string  `json:"currency"`
	AssetClass  string  `json:"assetClass"`
}

// Balance is a per-currency account balance.
type Balance struct {
	Cash     bool    `json:"cash"`
	Amount   Numeric `json:"amount"`
	Currency string  `json:"currency"`
}

// Numeric holds a vendor number as text. It accepts JSON strings, JSON
// numbers and null; the latter decodes to "".
type Numeric string

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(s))
		return nil
	}
	*n = Numeric(data)
	return nil
}

// Decimal parses the value. A missing value is zero.
func (n Numeric) Decimal() (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse numeric '%s': %w", string(n), err)
	}
	return d, nil
}

type registerRequest struct {
	UserID string `json:"userId"`
}

type loginRequest struct {
	Broker            string `json:"broker,omitempty"`
	CustomRedirect    string `json:"customRedirect,omitempty"`
	ImmediateRedirect bool   `json:"immediateRedirect"`
	ConnectionType    string `json:"connectionType"`
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Detail     string          `json:"detail"`
	StatusCode int             `json:"status_code"`
	Code       json.RawMessage `json:"code"`
}

// code returns the vendor error code whether it was sent as string or number.
func (e ErrorResponse) code() string {
	var s string
	if err := json.Unmarshal(e.Code, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e.Code))
}
