package holdings

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"brokerlink/internal/infrastructure/aggregator"
)

const fallbackCurrency = money.USD

// FromPosition converts a vendor position into a Holding. Missing numeric
// fields count as zero; unparseable ones are an error for this holding only.
func FromPosition(acct aggregator.Account, p aggregator.Position) (Holding, error) {
	qty, err := p.Quantity.Decimal()
	if err != nil {
		return Holding{}, fmt.Errorf("position %s: invalid quantity: %w", p.Symbol, err)
	}
	price, err := p.Price.Decimal()
	if err != nil {
		return Holding{}, fmt.Errorf("position %s: invalid price: %w", p.Symbol, err)
	}
	book, err := p.BookValue.Decimal()
	if err != nil {
		return Holding{}, fmt.Errorf("position %s: invalid book value: %w", p.Symbol, err)
	}

	h := Holding{
		AccountID:   acct.ID,
		AccountName: acct.Name,
		Brokerage:   acct.InstitutionName,
		Symbol:      strings.TrimSpace(p.Symbol),
		Description: strings.TrimSpace(p.Description),
		Quantity:    qty,
		Price:       price,
		BookValue:   book,
		Currency:    NormalizeCurrency(p.Currency, acct.Balance.Currency),
		AssetClass:  p.AssetClass,
	}
	h.TotalValue = qty.Mul(price)
	h.GainLoss = h.TotalValue.Sub(book)

	// A zero quantity has no per-share cost; flag it instead of dividing.
	if qty.IsZero() {
		h.PurchasePrice = decimal.Zero
		h.ZeroQuantity = true
	} else {
		h.PurchasePrice = book.Div(qty)
	}

	return h, nil
}

// FromBalance synthesizes a CASH holding. ok is false for non-cash or
// non-positive balances.
func FromBalance(acct aggregator.Account, b aggregator.Balance) (h Holding, ok bool, err error) {
	if !b.Cash {
		return Holding{}, false, nil
	}

	amount, err := b.Amount.Decimal()
	if err != nil {
		return Holding{}, false, fmt.Errorf("cash balance: invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return Holding{}, false, nil
	}

	return Holding{
		AccountID:     acct.ID,
		AccountName:   acct.Name,
		Brokerage:     acct.InstitutionName,
		Symbol:        CashSymbol,
		Description:   "Cash",
		Quantity:      decimal.NewFromInt(1),
		Price:         amount,
		BookValue:     amount,
		TotalValue:    amount,
		GainLoss:      decimal.Zero,
		PurchasePrice: amount,
		Currency:      NormalizeCurrency(b.Currency, acct.Balance.Currency),
		IsCash:        true,
	}, true, nil
}

// NormalizeCurrency returns the first of the candidates that is a known ISO
// 4217 code, upper-cased, or USD.
func NormalizeCurrency(candidates ...string) string {
	for _, c := range candidates {
		code := strings.ToUpper(strings.TrimSpace(c))
		if code != "" && money.GetCurrency(code) != nil {
			return code
		}
	}
	return fallbackCurrency
}

// FormatMoney renders amount in currency, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}

	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// describe builds the human description stored on the asset row.
func describe(h Holding) string {
	if h.IsCash {
		return fmt.Sprintf("Cash balance of %s", FormatMoney(h.TotalValue, h.Currency))
	}

	name := h.Description
	if name == "" {
		name = h.Symbol
	}
	return fmt.Sprintf("%s %s @ %s", h.Quantity.String(), name, FormatMoney(h.Price, h.Currency))
}

// accountLabel is the source-account text stored on asset rows.
func accountLabel(h Holding) string {
	switch {
	case h.Brokerage != "" && h.AccountName != "":
		return h.Brokerage + " - " + h.AccountName
	case h.AccountName != "":
		return h.AccountName
	default:
		return h.Brokerage
	}
}

// assetMetadata is the jsonb blob stored with each asset row. Numbers are
// kept as decimal strings.
func assetMetadata(h Holding) map[string]any {
	md := map[string]any{
		"symbol":        h.Symbol,
		"price":         h.Price.String(),
		"purchasePrice": h.PurchasePrice.String(),
		"quantity":      h.Quantity.String(),
		"currency":      h.Currency,
		"accountId":     h.AccountID,
		"accountName":   h.AccountName,
		"brokerage":     h.Brokerage,
		"gainLoss":      h.GainLoss.String(),
	}
	if h.AssetClass != "" {
		md["assetClass"] = h.AssetClass
	}
	if h.IsCash {
		md["assetClass"] = "cash"
	}
	if h.ZeroQuantity {
		md["anomaly"] = AnomalyZeroQuantity
	}
	return md
}
