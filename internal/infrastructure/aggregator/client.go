// Package aggregator is the adapter for the brokerage-aggregation vendor:
// user registration, connection portals, and account data reads.
package aggregator

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://api.snaptrade.com/api/v1"
	defaultTimeout = 30 * time.Second

	registerPath    = "/snapTrade/registerUser"
	loginPath       = "/snapTrade/login"
	userDetailsPath = "/snapTrade/userDetails"
	deleteUserPath  = "/snapTrade/deleteUser"
	accountsPath    = "/accounts"
	authPath        = "/authorizations"

	signatureHeader = "Signature"
)

// Config holds the vendor credentials and transport settings.
type Config struct {
	BaseURL     string
	ClientID    string
	ConsumerKey string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client handles communication with the aggregation API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	consumerKey []byte
	now         func() time.Time
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// New returns a working client when both credentials are configured and an
// Unconfigured adapter otherwise.
func New(cfg Config) ClientInterface {
	c, err := NewClient(cfg)
	if err != nil {
		return Unconfigured{}
	}
	return c
}

// NewClient creates a configured client or fails with ErrUninitialized.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ConsumerKey == "" {
		return nil, ErrUninitialized
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		clientID:    cfg.ClientID,
		consumerKey: []byte(cfg.ConsumerKey),
		now:         time.Now,
	}, nil
}

// RegisterUser creates the vendor user for userID.
func (c *Client) RegisterUser(ctx context.Context, userID string) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodPost, registerPath, nil, registerRequest{UserID: userID}, &identity); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	if identity.UserID == "" {
		identity.UserID = userID
	}
	return &identity, nil
}

// Login returns a connection portal for the user, optionally preselecting a broker.
func (c *Client) Login(ctx context.Context, userID, userSecret string, opts LoginOptions) (*Portal, error) {
	body := loginRequest{
		Broker:            opts.BrokerID,
		CustomRedirect:    opts.RedirectURI,
		ImmediateRedirect: opts.RedirectURI != "",
		ConnectionType:    "read",
	}

	var portal Portal
	if err := c.do(ctx, http.MethodPost, loginPath, userQuery(userID, userSecret), body, &portal); err != nil {
		return nil, fmt.Errorf("failed to login user: %w", err)
	}
	if portal.RedirectURI == "" {
		return nil, ErrPortalGenerationFailed
	}
	return &portal, nil
}

// GetUserDetails returns the vendor's view of the user, including its secret when available.
func (c *Client) GetUserDetails(ctx context.Context, userID string) (*Identity, error) {
	q := url.Values{}
	q.Set("userId", userID)

	var identity Identity
	if err := c.do(ctx, http.MethodGet, userDetailsPath, q, nil, &identity); err != nil {
		return nil, fmt.Errorf("failed to get user details: %w", err)
	}
	return &identity, nil
}

// DeleteUser removes the vendor user and every connection it owns.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("userId", userID)

	if err := c.do(ctx, http.MethodDelete, deleteUserPath, q, nil, nil); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListAccounts fetches every brokerage account of the user.
func (c *Client) ListAccounts(ctx context.Context, userID, userSecret string) ([]Account, error) {
	var accounts []Account
	if err := c.do(ctx, http.MethodGet, accountsPath, userQuery(userID, userSecret), nil, &accounts); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// GetAccountPositions fetches the security positions of one account.
func (c *Client) GetAccountPositions(ctx context.Context, userID, userSecret, accountID string) ([]Position, error) {
	path := accountsPath + "/" + url.PathEscape(accountID) + "/positions"

	var positions []Position
	if err := c.do(ctx, http.MethodGet, path, userQuery(userID, userSecret), nil, &positions); err != nil {
		return nil, fmt.Errorf("failed to get positions for account %s: %w", accountID, err)
	}
	return positions, nil
}

// GetAccountBalances fetches the per-currency balances of one account.
func (c *Client) GetAccountBalances(ctx context.Context, userID, userSecret, accountID string) ([]Balance, error) {
	path := accountsPath + "/" + url.PathEscape(accountID) + "/balances"

	var balances []Balance
	if err := c.do(ctx, http.MethodGet, path, userQuery(userID, userSecret), nil, &balances); err != nil {
		return nil, fmt.Errorf("failed to get balances for account %s: %w", accountID, err)
	}
	return balances, nil
}

// DeleteConnection revokes one brokerage authorization.
func (c *Client) DeleteConnection(ctx context.Context, userID, userSecret, authorizationID string) error {
	path := authPath + "/" + url.PathEscape(authorizationID)

	if err := c.do(ctx, http.MethodDelete, path, userQuery(userID, userSecret), nil, nil); err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", authorizationID, err)
	}
	return nil
}

func userQuery(userID, userSecret string) url.Values {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("userSecret", userSecret)
	return q
}

// do sends a signed request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("clientId", c.clientID)
	query.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to build url: %w", err)
	}
	u.RawQuery = query.Encode()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	signature, err := sign(c.consumerKey, u.Path, u.RawQuery, payload)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(signatureHeader, signature)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Detail != "" || len(errResp.Code) > 0) {
		apiErr.Code = errResp.code()
		apiErr.Detail = errResp.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(status)
	}

	apiErr.Kind = classify(status, apiErr.Code, apiErr.Detail)
	return apiErr
}

// sign computes base64(HMAC-SHA256(consumerKey, {"content":…,"path":…,"query":…})).
func sign(key []byte, path, rawQuery string, payload []byte) (string, error) {
	content := json.RawMessage("null")
	if len(payload) > 0 {
		content = payload
	}

	// The vendor signs the JSON text without HTML escaping.
	var msg bytes.Buffer
	enc := json.NewEncoder(&msg)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		Content json.RawMessage `json:"content"`
		Path    string          `json:"path"`
		Query   string          `json:"query"`
	}{content, path, rawQuery})
	if err != nil {
		return "", fmt.Errorf("failed to build signature payload: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(bytes.TrimSuffix(msg.Bytes(), []byte("\n")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
