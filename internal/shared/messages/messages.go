// Package messages holds the user-facing texts for the brokerage callback
// redirect. Deployments may override any text with a JSON file.
package messages

import (
	"encoding/json"
	"fmt"
	"os"
)

// Connected is the key of the success text.
const Connected = "connected"

// Messages maps an outcome code to its text.
type Messages struct {
	texts map[string]string
}

var defaults = map[string]string{
	Connected:           "Your brokerage account was connected and your holdings were imported.",
	"connection_failed": "The brokerage connection was not completed. Please try again.",
	"unauthorized":      "Your session expired. Sign in and connect your brokerage again.",
	"identity_mismatch": "This connection belongs to a different account.",
	"activation_failed": "We could not save your brokerage connection. Please try again.",
	"sync_failed":       "Your brokerage was connected but importing holdings failed. We will retry shortly.",
	"internal_error":    "Something went wrong while connecting your brokerage.",
}

const fallbackCode = "internal_error"

// Default returns the built-in texts.
func Default() *Messages {
	texts := make(map[string]string, len(defaults))
	for k, v := range defaults {
		texts[k] = v
	}
	return &Messages{texts: texts}
}

// Load reads a JSON object of code to text and overlays it on the defaults.
// An empty path returns the defaults.
func Load(path string) (*Messages, error) {
	m := Default()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}

	var overrides map[string]string
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse messages file: %w", err)
	}
	for code, text := range overrides {
		if text != "" {
			m.texts[code] = text
		}
	}
	return m, nil
}

// For returns the text for code, falling back to the generic error text.
func (m *Messages) For(code string) string {
	if text, ok := m.texts[code]; ok {
		return text
	}
	return m.texts[fallbackCode]
}
