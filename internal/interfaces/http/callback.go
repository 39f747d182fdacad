package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"brokerlink/internal/domain/brokerage"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/shared/logger"
	"brokerlink/internal/shared/messages"
)

// CallbackCompleter finishes a portal round trip.
type CallbackCompleter interface {
	Complete(ctx context.Context, p brokerage.CallbackParams) (*holdings.SyncResult, error)
}

// CallbackHandler serves the portal return URL. It only ever redirects.
type CallbackHandler struct {
	completer     CallbackCompleter
	messages      *messages.Messages
	dashboardPath string
}

func NewCallbackHandler(completer CallbackCompleter, msgs *messages.Messages, dashboardPath string) *CallbackHandler {
	if msgs == nil {
		msgs = messages.Default()
	}
	return &CallbackHandler{completer: completer, messages: msgs, dashboardPath: dashboardPath}
}

// HandleCallback completes the connection and redirects to the dashboard with
// the outcome in the query string.
func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := brokerage.CallbackParams{
		UserID:          strings.TrimSpace(q.Get("userId")),
		Success:         q.Get("success") == "true",
		Brokerage:       q.Get("brokerage"),
		AuthorizationID: q.Get("authorizationId"),
	}

	result, err := h.completer.Complete(r.Context(), params)
	if err != nil {
		code := "internal_error"
		var cbErr *brokerage.CallbackError
		if errors.As(err, &cbErr) {
			code = cbErr.Code
		}
		logger.Ctx(r.Context()).Warn().Err(err).Str("code", code).Msg("Brokerage callback failed")

		out := url.Values{}
		out.Set("error", code)
		out.Set("message", h.messages.For(code))
		if cbErr == nil || cbErr.Err != nil {
			out.Set("detail", err.Error())
		}
		h.redirect(w, r, out)
		return
	}

	out := url.Values{}
	out.Set("success", "true")
	out.Set("message", h.messages.For(messages.Connected))
	if result != nil {
		out.Set("imported", strconv.Itoa(result.Inserted))
	}
	h.redirect(w, r, out)
}

func (h *CallbackHandler) redirect(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, h.dashboardPath+"?"+q.Encode(), http.StatusFound)
}
