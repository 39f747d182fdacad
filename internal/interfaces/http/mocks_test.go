package http

import (
	"context"

	"brokerlink/internal/domain/brokerage"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/infrastructure/aggregator"
	"brokerlink/internal/shared/auth"
)

type MockLinker struct {
	GetConnectionLinkFunc func(ctx context.Context, userID, redirectURI, brokerID string) (string, error)
	calls                 int
}

func (m *MockLinker) GetConnectionLink(ctx context.Context, userID, redirectURI, brokerID string) (string, error) {
	m.calls++
	if m.GetConnectionLinkFunc != nil {
		return m.GetConnectionLinkFunc(ctx, userID, redirectURI, brokerID)
	}
	return "https://portal.example/session", nil
}

type MockDisconnector struct {
	DisconnectFunc func(ctx context.Context, userID, connectionID string) error
	calls          int
}

func (m *MockDisconnector) Disconnect(ctx context.Context, userID, connectionID string) error {
	m.calls++
	if m.DisconnectFunc != nil {
		return m.DisconnectFunc(ctx, userID, connectionID)
	}
	return nil
}

type MockCompleter struct {
	CompleteFunc func(ctx context.Context, p brokerage.CallbackParams) (*holdings.SyncResult, error)
	got          brokerage.CallbackParams
}

func (m *MockCompleter) Complete(ctx context.Context, p brokerage.CallbackParams) (*holdings.SyncResult, error) {
	m.got = p
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, p)
	}
	return &holdings.SyncResult{UserID: p.UserID, Inserted: 2}, nil
}

type MockReader struct {
	AccountsFunc func(ctx context.Context, userID string) ([]aggregator.Account, error)
	HoldingsFunc func(ctx context.Context, userID, accountID string) ([]holdings.Holding, error)
}

func (m *MockReader) Accounts(ctx context.Context, userID string) ([]aggregator.Account, error) {
	if m.AccountsFunc != nil {
		return m.AccountsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockReader) Holdings(ctx context.Context, userID, accountID string) ([]holdings.Holding, error) {
	if m.HoldingsFunc != nil {
		return m.HoldingsFunc(ctx, userID, accountID)
	}
	return nil, nil
}

func withPrincipal(ctx context.Context, userID string) context.Context {
	return auth.WithPrincipal(ctx, &auth.Principal{UserID: userID})
}
