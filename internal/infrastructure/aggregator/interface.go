package aggregator

import (
	"context"
)

// ClientInterface defines the methods required from the aggregation vendor.
type ClientInterface interface {
	RegisterUser(ctx context.Context, userID string) (*Identity, error)
	Login(ctx context.Context, userID, userSecret string, opts LoginOptions) (*Portal, error)
	GetUserDetails(ctx context.Context, userID string) (*Identity, error)
	DeleteUser(ctx context.Context, userID string) error

	ListAccounts(ctx context.Context, userID, userSecret string) ([]Account, error)
	GetAccountPositions(ctx context.Context, userID, userSecret, accountID string) ([]Position, error)
	GetAccountBalances(ctx context.Context, userID, userSecret, accountID string) ([]Balance, error)
	DeleteConnection(ctx context.Context, userID, userSecret, authorizationID string) error
}
