package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
)

type stateFake struct {
	mu     sync.Mutex
	states map[string]string
}

func newStateFake() *stateFake { return &stateFake{states: map[string]string{}} }

func (f *stateFake) SaveState(ctx context.Context, state, redirectURI string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = redirectURI
	return nil
}

func (f *stateFake) TakeState(ctx context.Context, state string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri, ok := f.states[state]
	if !ok {
		return "", errs.Validation("unknown or expired oidc state")
	}
	delete(f.states, state)
	return uri, nil
}

func fakeKeycloak(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/bookvault/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.Form.Get("grant_type") {
		case "password":
			if r.Form.Get("password") != "correct" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "invalid_grant", "error_description": "Invalid user credentials",
				})
				return
			}
		case "authorization_code":
			if r.Form.Get("code") != "good-code" || r.Form.Get("redirect_uri") == "" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
		case "refresh_token":
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at", "refresh_token": "rt", "token_type": "Bearer", "expires_in": 300,
		})
	})
	mux.HandleFunc("/realms/bookvault/protocol/openid-connect/token/introspect", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		json.NewEncoder(w).Encode(map[string]any{
			"active": r.Form.Get("token") == "at", "preferred_username": "reader",
		})
	})
	mux.HandleFunc("/realms/bookvault/protocol/openid-connect/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"sub": "u-1", "preferred_username": "reader"})
	})
	mux.HandleFunc("/realms/bookvault/protocol/openid-connect/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAuthSvc(t *testing.T, states StateStore) *AuthService {
	t.Helper()
	srv := fakeKeycloak(t)
	return NewAuthService(AuthConfig{
		BaseURL:  srv.URL,
		Realm:    "bookvault",
		ClientID: "bookvault-api",
	}, states, zap.NewNop())
}

func TestAuthService_DirectLogin(t *testing.T) {
	t.Parallel()

	svc := newAuthSvc(t, newStateFake())
	ctx := context.Background()

	token, err := svc.DirectLogin(ctx, "reader", "correct")
	require.NoError(t, err)
	require.Equal(t, "at", token.AccessToken)
	require.Equal(t, "Bearer", token.TokenType)

	_, err = svc.DirectLogin(ctx, "reader", "wrong")
	require.True(t, errs.IsService(err, errs.ServiceValidation))

	_, err = svc.DirectLogin(ctx, "", "")
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestAuthService_CodeFlow(t *testing.T) {
	t.Parallel()

	states := newStateFake()
	svc := newAuthSvc(t, states)
	ctx := context.Background()

	authURL, err := svc.AuthCodeURL(ctx, "https://app.local/callback")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	require.Equal(t, "code", parsed.Query().Get("response_type"))

	token, err := svc.ExchangeCode(ctx, "good-code", state)
	require.NoError(t, err)
	require.Equal(t, "at", token.AccessToken)

	// state is single use
	_, err = svc.ExchangeCode(ctx, "good-code", state)
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestAuthService_Introspect(t *testing.T) {
	t.Parallel()

	svc := newAuthSvc(t, newStateFake())
	ctx := context.Background()

	active, err := svc.Introspect(ctx, "at")
	require.NoError(t, err)
	require.True(t, active.Active)
	require.Equal(t, "reader", active.Username)

	inactive, err := svc.Introspect(ctx, "expired")
	require.NoError(t, err)
	require.False(t, inactive.Active)
}

func TestAuthService_UserInfo(t *testing.T) {
	t.Parallel()

	svc := newAuthSvc(t, newStateFake())
	ctx := context.Background()

	info, err := svc.UserInfo(ctx, "at")
	require.NoError(t, err)
	require.Equal(t, "u-1", info.Subject)

	_, err = svc.UserInfo(ctx, "bad")
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	svc := newAuthSvc(t, newStateFake())
	require.NoError(t, svc.Logout(context.Background(), "rt"))

	err := svc.Logout(context.Background(), "")
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}
