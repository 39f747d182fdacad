package brokerage

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/google/uuid"

	"brokerlink/internal/domain/connection"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/infrastructure/aggregator"
	"brokerlink/internal/shared/auth"
)

// MockClient is a mock implementation of aggregator.ClientInterface that
// counts every call.
type MockClient struct {
	mu    sync.Mutex
	calls map[string]int

	RegisterUserFunc     func(ctx context.Context, userID string) (*aggregator.Identity, error)
	LoginFunc            func(ctx context.Context, userID, secret string, opts aggregator.LoginOptions) (*aggregator.Portal, error)
	GetUserDetailsFunc   func(ctx context.Context, userID string) (*aggregator.Identity, error)
	DeleteUserFunc       func(ctx context.Context, userID string) error
	DeleteConnectionFunc func(ctx context.Context, userID, secret, authorizationID string) error
}

func (m *MockClient) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func (m *MockClient) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockClient) RegisterUser(ctx context.Context, userID string) (*aggregator.Identity, error) {
	m.record("RegisterUser")
	if m.RegisterUserFunc != nil {
		return m.RegisterUserFunc(ctx, userID)
	}
	return &aggregator.Identity{UserID: userID, UserSecret: "secret-registered"}, nil
}

func (m *MockClient) Login(ctx context.Context, userID, secret string, opts aggregator.LoginOptions) (*aggregator.Portal, error) {
	m.record("Login")
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, userID, secret, opts)
	}
	return &aggregator.Portal{RedirectURI: "https://portal.example/" + secret}, nil
}

func (m *MockClient) GetUserDetails(ctx context.Context, userID string) (*aggregator.Identity, error) {
	m.record("GetUserDetails")
	if m.GetUserDetailsFunc != nil {
		return m.GetUserDetailsFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockClient) DeleteUser(ctx context.Context, userID string) error {
	m.record("DeleteUser")
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, userID)
	}
	return nil
}

func (m *MockClient) DeleteConnection(ctx context.Context, userID, secret, authorizationID string) error {
	m.record("DeleteConnection")
	if m.DeleteConnectionFunc != nil {
		return m.DeleteConnectionFunc(ctx, userID, secret, authorizationID)
	}
	return nil
}

func (m *MockClient) ListAccounts(ctx context.Context, userID, secret string) ([]aggregator.Account, error) {
	m.record("ListAccounts")
	return nil, nil
}

func (m *MockClient) GetAccountPositions(ctx context.Context, userID, secret, accountID string) ([]aggregator.Position, error) {
	m.record("GetAccountPositions")
	return nil, nil
}

func (m *MockClient) GetAccountBalances(ctx context.Context, userID, secret, accountID string) ([]aggregator.Balance, error) {
	m.record("GetAccountBalances")
	return nil, nil
}

// memoryRepo is an in-memory connection.Repository with the same merge
// semantics as the Postgres one.
type memoryRepo struct {
	mu     sync.Mutex
	rows   map[string]*connection.BrokerConnection
	writes int

	// failures injected per method name
	fail map[string]error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]*connection.BrokerConnection), fail: make(map[string]error)}
}

func (r *memoryRepo) key(userID, brokerID string) string { return userID + "/" + brokerID }

func clone(c *connection.BrokerConnection) *connection.BrokerConnection {
	cp := *c
	cp.Metadata = maps.Clone(c.Metadata)
	return &cp
}

func (r *memoryRepo) GetByUser(ctx context.Context, userID, brokerID string) (*connection.BrokerConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["GetByUser"]; err != nil {
		return nil, err
	}
	c, ok := r.rows[r.key(userID, brokerID)]
	if !ok {
		return nil, connection.ErrConnectionNotFound
	}
	return clone(c), nil
}

func (r *memoryRepo) GetByID(ctx context.Context, userID, id string) (*connection.BrokerConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ID == id && c.UserID == userID {
			return clone(c), nil
		}
	}
	return nil, connection.ErrConnectionNotFound
}

func (r *memoryRepo) Upsert(ctx context.Context, p connection.UpsertParams) (*connection.BrokerConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if err := r.fail["Upsert"]; err != nil {
		return nil, err
	}
	k := r.key(p.UserID, p.BrokerID)
	c, ok := r.rows[k]
	if !ok {
		c = &connection.BrokerConnection{ID: uuid.NewString(), UserID: p.UserID, BrokerID: p.BrokerID, Metadata: connection.Metadata{}}
		r.rows[k] = c
	}
	c.UserSecret = p.UserSecret
	maps.Copy(c.Metadata, p.Metadata)
	return clone(c), nil
}

func (r *memoryRepo) MergeMetadata(ctx context.Context, userID, brokerID string, patch connection.Metadata, activate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if err := r.fail["MergeMetadata"]; err != nil {
		return err
	}
	c, ok := r.rows[r.key(userID, brokerID)]
	if !ok {
		return connection.ErrConnectionNotFound
	}
	maps.Copy(c.Metadata, patch)
	c.IsActive = c.IsActive || activate
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if err := r.fail["Delete"]; err != nil {
		return err
	}
	for k, c := range r.rows {
		if c.ID == id && c.UserID == userID {
			delete(r.rows, k)
			return nil
		}
	}
	return connection.ErrConnectionNotFound
}

func (r *memoryRepo) ListActive(ctx context.Context, brokerID string) ([]*connection.BrokerConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*connection.BrokerConnection
	for _, c := range r.rows {
		if c.BrokerID == brokerID && c.IsActive {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

// row returns the stored connection for userID or nil.
func (r *memoryRepo) row(userID string) *connection.BrokerConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[r.key(userID, connection.Provider)]
	if !ok {
		return nil
	}
	return clone(c)
}

// seed stores a registered connection for userID.
func (r *memoryRepo) seed(userID, secret string, md connection.Metadata) *connection.BrokerConnection {
	c, _ := r.Upsert(context.Background(), connection.UpsertParams{
		UserID: userID, BrokerID: connection.Provider, UserSecret: secret, Metadata: md,
	})
	r.mu.Lock()
	r.writes = 0
	r.mu.Unlock()
	return c
}

type MockSyncer struct {
	SyncAssetsFunc func(ctx context.Context, userID string) (*holdings.SyncResult, error)
	calls          int
}

func (m *MockSyncer) SyncAssets(ctx context.Context, userID string) (*holdings.SyncResult, error) {
	m.calls++
	if m.SyncAssetsFunc != nil {
		return m.SyncAssetsFunc(ctx, userID)
	}
	return &holdings.SyncResult{UserID: userID, RunID: "run-1", Inserted: 3}, nil
}

func authenticated(userID string) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{UserID: userID})
}

func alreadyExistsErr() error {
	return &aggregator.APIError{StatusCode: 400, Code: "1010", Detail: "User already exist", Kind: aggregator.KindAlreadyExists}
}
