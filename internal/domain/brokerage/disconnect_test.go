package brokerage

import (
	"context"
	"errors"
	"testing"

	"brokerlink/internal/domain/connection"
	"brokerlink/internal/shared/auth"
)

func TestDisconnect(t *testing.T) {
	tests := []struct {
		name         string
		metadata     connection.Metadata
		remoteErr    error
		wantRemote   string
		wantAuthID string
	}{
		{
			name:         "Revokes authorization",
			metadata:     connection.Metadata{connection.KeyAuthorizationID: "auth-1"},
			wantRemote:   "DeleteConnection",
			wantAuthID: "auth-1",
		},
		{
			name:       "Deletes remote user without authorization",
			wantRemote: "DeleteUser",
		},
		{
			name:       "Remote failure still succeeds",
			remoteErr:  errors.New("vendor down"),
			wantRemote: "DeleteUser",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			conn := repo.seed("user-1", "secret-1", tt.metadata)

			var gotAuthID, gotSecret string
			client := &MockClient{
				DeleteConnectionFunc: func(ctx context.Context, userID, secret, authorizationID string) error {
					gotAuthID, gotSecret = authorizationID, secret
					return tt.remoteErr
				},
				DeleteUserFunc: func(ctx context.Context, userID string) error {
					return tt.remoteErr
				},
			}
			svc := NewDisconnectService(client, connection.NewSecretStore(repo))

			if err := svc.Disconnect(authenticated("user-1"), "user-1", conn.ID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.Calls(tt.wantRemote) != 1 {
				t.Errorf("expected %s to be called, got %v", tt.wantRemote, client.calls)
			}
			if tt.wantAuthID != "" && (gotAuthID != tt.wantAuthID || gotSecret != "secret-1") {
				t.Errorf("unexpected revoke args auth=%s secret=%s", gotAuthID, gotSecret)
			}
			if repo.row("user-1") != nil {
				t.Error("expected local row to be deleted")
			}
		})
	}
}

func TestDisconnect_LocalDeleteFailure(t *testing.T) {
	for _, remoteErr := range []error{nil, errors.New("vendor down")} {
		repo := newMemoryRepo()
		conn := repo.seed("user-1", "secret-1", nil)
		repo.fail["Delete"] = errors.New("lock timeout")
		client := &MockClient{DeleteUserFunc: func(ctx context.Context, userID string) error { return remoteErr }}
		svc := NewDisconnectService(client, connection.NewSecretStore(repo))

		err := svc.Disconnect(authenticated("user-1"), "user-1", conn.ID)
		if !errors.Is(err, connection.ErrDatastore) {
			t.Errorf("remote=%v: expected ErrDatastore, got %v", remoteErr, err)
		}
	}
}

func TestDisconnect_Gate(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		wantErr error
	}{
		{"No session", context.Background(), auth.ErrUnauthenticated},
		{"Other user", authenticated("user-2"), auth.ErrIdentityMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			conn := repo.seed("user-1", "secret-1", nil)
			client := &MockClient{}
			svc := NewDisconnectService(client, connection.NewSecretStore(repo))

			err := svc.Disconnect(tt.ctx, "user-1", conn.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if client.TotalCalls() != 0 || repo.writes != 0 {
				t.Error("expected no remote or datastore mutation")
			}
			if repo.row("user-1") == nil {
				t.Error("row must survive a rejected request")
			}
		})
	}
}

func TestDisconnect_OtherUsersConnection(t *testing.T) {
	repo := newMemoryRepo()
	theirs := repo.seed("user-2", "secret-2", nil)
	client := &MockClient{}
	svc := NewDisconnectService(client, connection.NewSecretStore(repo))

	err := svc.Disconnect(authenticated("user-1"), "user-1", theirs.ID)
	if !errors.Is(err, connection.ErrConnectionNotFound) {
		t.Fatalf("expected ErrConnectionNotFound, got %v", err)
	}
	if client.TotalCalls() != 0 || repo.row("user-2") == nil {
		t.Error("another user's connection must not be touched")
	}
}
