package holdings

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentsCategory is the asset category every synced holding belongs to.
const InvestmentsCategory = "investments"

// CashSymbol marks holdings synthesized from cash balances.
const CashSymbol = "CASH"

// AnomalyZeroQuantity is recorded in asset metadata when a position has no quantity.
const AnomalyZeroQuantity = "zero_quantity"

// Domain errors
var (
	ErrCategoryNotFound = errors.New("investments asset category not found")
	ErrAccountNotFound  = errors.New("brokerage account not found")
)

// Holding is a security position or a cash balance in a common shape.
type Holding struct {
	AccountID     string          `json:"accountId"`
	AccountName   string          `json:"accountName"`
	Brokerage     string          `json:"brokerage"`
	Symbol        string          `json:"symbol"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	BookValue     decimal.Decimal `json:"bookValue"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	GainLoss      decimal.Decimal `json:"gainLoss"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Currency      string          `json:"currency"`
	AssetClass    string          `json:"assetClass,omitempty"`
	IsCash        bool            `json:"isCash"`
	ZeroQuantity  bool            `json:"zeroQuantity,omitempty"`
}

// Asset is one row of the assets table.
type Asset struct {
	ID               string
	UserID           string
	Name             string
	Value            decimal.Decimal
	Description      string
	Account          string
	AcquisitionDate  time.Time
	AcquisitionValue decimal.Decimal
	CategoryID       string
	IsLiability      bool
	SyncRunID        string
	Metadata         map[string]any
}

// SyncResult contains the results of a write-path sync
type SyncResult struct {
	UserID        string   `json:"userId"`
	RunID         string   `json:"runId"`
	AccountsFound int      `json:"accountsFound"`
	HoldingsFound int      `json:"holdingsFound"`
	Inserted      int      `json:"inserted"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors"`
}

// AssetRepository defines the interface for asset persistence
type AssetRepository interface {
	// Insert appends one asset row. Rows are never updated by this service.
	Insert(ctx context.Context, asset *Asset) error
}

// CategoryRepository defines the interface for asset category lookups
type CategoryRepository interface {
	// GetIDByName returns the category id or ErrCategoryNotFound.
	GetIDByName(ctx context.Context, name string) (string, error)
}
