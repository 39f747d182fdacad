package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"brokerlink/internal/domain/brokerage"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/shared/messages"
)

func TestHandleCallback(t *testing.T) {
	msgs := messages.Default()

	tests := []struct {
		name        string
		query       string
		completeErr error
		wantQuery   map[string]string
		wantDetail  bool
	}{
		{
			name:      "Success",
			query:     "userId=user-1&success=true&brokerage=ALPACA&authorizationId=auth-1",
			wantQuery: map[string]string{"success": "true", "imported": "2", "message": msgs.For(messages.Connected)},
		},
		{
			name:        "Declared failure",
			query:       "userId=user-1&success=false",
			completeErr: &brokerage.CallbackError{Code: brokerage.CodeConnectionFailed},
			wantQuery:   map[string]string{"error": brokerage.CodeConnectionFailed, "message": msgs.For(brokerage.CodeConnectionFailed)},
		},
		{
			name:        "Sync failure",
			query:       "userId=user-1&success=true",
			completeErr: &brokerage.CallbackError{Code: brokerage.CodeSyncFailed, Err: holdings.ErrCategoryNotFound},
			wantQuery:   map[string]string{"error": brokerage.CodeSyncFailed, "message": msgs.For(brokerage.CodeSyncFailed)},
			wantDetail:  true,
		},
		{
			name:        "Unexpected error",
			query:       "userId=user-1&success=true",
			completeErr: errors.New("boom"),
			wantQuery:   map[string]string{"error": "internal_error", "detail": "boom"},
			wantDetail:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &MockCompleter{}
			if tt.completeErr != nil {
				completer.CompleteFunc = func(ctx context.Context, p brokerage.CallbackParams) (*holdings.SyncResult, error) {
					return nil, tt.completeErr
				}
			}
			handler := NewCallbackHandler(completer, msgs, "/dashboard/assets")

			req := httptest.NewRequest(http.MethodGet, "/api/brokerage/callback?"+tt.query, nil)
			rr := httptest.NewRecorder()

			handler.HandleCallback(rr, req)

			if rr.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d", rr.Code)
			}
			loc, err := url.Parse(rr.Header().Get("Location"))
			if err != nil {
				t.Fatalf("invalid Location: %v", err)
			}
			if loc.Path != "/dashboard/assets" {
				t.Errorf("expected dashboard path, got %s", loc.Path)
			}
			got := loc.Query()
			for k, v := range tt.wantQuery {
				if got.Get(k) != v {
					t.Errorf("query %s = %q, want %q", k, got.Get(k), v)
				}
			}
			if (got.Get("detail") != "") != tt.wantDetail {
				t.Errorf("detail = %q, wantDetail %v", got.Get("detail"), tt.wantDetail)
			}
			if ct := rr.Header().Get("Content-Type"); ct == "application/json" {
				t.Error("callback must never answer with JSON")
			}
		})
	}
}

func TestHandleCallback_ParsesParams(t *testing.T) {
	completer := &MockCompleter{}
	handler := NewCallbackHandler(completer, nil, "/dash")

	req := httptest.NewRequest(http.MethodGet, "/api/brokerage/callback?userId=%20user-1%20&success=true&brokerage=ALPACA&authorizationId=auth-1", nil)
	handler.HandleCallback(httptest.NewRecorder(), req)

	want := brokerage.CallbackParams{UserID: "user-1", Success: true, Brokerage: "ALPACA", AuthorizationID: "auth-1"}
	if completer.got != want {
		t.Errorf("expected %+v, got %+v", want, completer.got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/brokerage/callback?userId=user-1&success=TRUE", nil)
	handler.HandleCallback(httptest.NewRecorder(), req)
	if completer.got.Success {
		t.Error("only the literal \"true\" counts as success")
	}
}
