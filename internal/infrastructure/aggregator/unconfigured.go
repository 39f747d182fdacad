package aggregator

import "context"

// Unconfigured is the adapter used when vendor credentials are absent. Every
// call fails with ErrUninitialized.
type Unconfigured struct{}

var _ ClientInterface = Unconfigured{}

func (Unconfigured) RegisterUser(context.Context, string) (*Identity, error) {
	return nil, ErrUninitialized
}

func (Unconfigured) Login(context.Context, string, string, LoginOptions) (*Portal, error) {
	return nil, ErrUninitialized
}

func (Unconfigured) GetUserDetails(context.Context, string) (*Identity, error) {
	return nil, ErrUninitialized
}

func (Unconfigured) DeleteUser(context.Context, string) error {
	return ErrUninitialized
}

func (Unconfigured) ListAccounts(context.Context, string, string) ([]Account, error) {
	return nil, ErrUninitialized
}

func (Unconfigured) GetAccountPositions(context.Context, string, string, string) ([]Position, error) {
	return nil, ErrUninitialized
}

func (Unconfigured) GetAccountBalances(context.Context, string, string, string) ([]Balance, error) {
	return nil, ErrUninitialized
}

func (Unconfigured) DeleteConnection(context.Context, string, string, string) error {
	return ErrUninitialized
}
