package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"brokerlink/internal/shared/auth"
)

// ConnectionLinker issues connection portal URLs.
type ConnectionLinker interface {
	GetConnectionLink(ctx context.Context, userID, redirectURI, brokerID string) (string, error)
}

// Disconnector removes a broker connection.
type Disconnector interface {
	Disconnect(ctx context.Context, userID, connectionID string) error
}

// BrokerageHandler serves /api/brokerage/connect.
type BrokerageHandler struct {
	linker       ConnectionLinker
	disconnector Disconnector
	validate     *validator.Validate
}

func NewBrokerageHandler(linker ConnectionLinker, disconnector Disconnector) *BrokerageHandler {
	return &BrokerageHandler{
		linker:       linker,
		disconnector: disconnector,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

type ConnectRequest struct {
	UserID      string `json:"userId" validate:"required"`
	BrokerID    string `json:"brokerId,omitempty"`
	RedirectURI string `json:"redirectUri" validate:"required,url"`
}

type ConnectResponse struct {
	RedirectURI string `json:"redirectUri"`
}

type DisconnectRequest struct {
	UserID       string `validate:"required"`
	ConnectionID string `validate:"required"`
}

// HandleConnect returns a portal URL for the caller.
func (h *BrokerageHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.BrokerID = strings.TrimSpace(req.BrokerID)
	if err := h.validate.Struct(req); err != nil {
		badRequest(w, validationMessage(err))
		return
	}

	redirectURI, err := h.linker.GetConnectionLink(r.Context(), req.UserID, req.RedirectURI, req.BrokerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ConnectResponse{RedirectURI: redirectURI})
}

// HandleDisconnect deletes the caller's connection named by the query.
func (h *BrokerageHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	req := DisconnectRequest{
		UserID:       strings.TrimSpace(q.Get("userId")),
		ConnectionID: strings.TrimSpace(q.Get("connectionId")),
	}
	if err := h.validate.Struct(req); err != nil {
		badRequest(w, validationMessage(err))
		return
	}

	if err := h.disconnector.Disconnect(r.Context(), req.UserID, req.ConnectionID); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// validationMessage names the first invalid field in its wire casing.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}

	fe := verrs[0]
	field := wireName(fe.Field())
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return field + " is invalid"
}

func wireName(field string) string {
	switch field {
	case "UserID":
		return "userId"
	case "RedirectURI":
		return "redirectUri"
	case "ConnectionID":
		return "connectionId"
	case "BrokerID":
		return "brokerId"
	}
	return field
}
