package http

import (
	"context"
	"net/http"
	"strings"

	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/infrastructure/aggregator"
	"brokerlink/internal/shared/auth"
)

// HoldingsReader is the read side of holdings sync.
type HoldingsReader interface {
	Accounts(ctx context.Context, userID string) ([]aggregator.Account, error)
	Holdings(ctx context.Context, userID, accountID string) ([]holdings.Holding, error)
}

// HoldingsHandler serves the live account and holdings views.
type HoldingsHandler struct {
	reader HoldingsReader
}

func NewHoldingsHandler(reader HoldingsReader) *HoldingsHandler {
	return &HoldingsHandler{reader: reader}
}

type AccountResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Number          string `json:"number"`
	InstitutionName string `json:"institutionName"`
	Balance         string `json:"balance"`
	Currency        string `json:"currency"`
}

func toAccountResponse(a aggregator.Account) AccountResponse {
	balance := string(a.Balance.Amount)
	if balance == "" {
		balance = "0"
	}
	return AccountResponse{
		ID:              a.ID,
		Name:            a.Name,
		Number:          a.Number,
		InstitutionName: a.InstitutionName,
		Balance:         balance,
		Currency:        holdings.NormalizeCurrency(a.Balance.Currency),
	}
}

// HandleAccounts lists the caller's brokerage accounts.
func (h *HoldingsHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.verify(w, r)
	if !ok {
		return
	}

	accounts, err := h.reader.Accounts(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		response = append(response, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": response})
}

// HandleHoldings returns current holdings, optionally for one account.
func (h *HoldingsHandler) HandleHoldings(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.verify(w, r)
	if !ok {
		return
	}

	list, err := h.reader.Holdings(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("accountId")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []holdings.Holding{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"holdings": list})
}

// verify runs the credential gate for the userId query parameter.
func (h *HoldingsHandler) verify(w http.ResponseWriter, r *http.Request) (string, bool) {
	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return "", false
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		badRequest(w, "userId is required")
		return "", false
	}

	if _, err := auth.Verify(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return "", false
	}
	return userID, true
}
