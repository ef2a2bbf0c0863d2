package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
	"github.com/ekarpov/bookvault/pkg/circuit_breaker"
)

// AuthConfig points at one keycloak realm. Issuer is derived from BaseURL
// and Realm; the jwt middleware validates against the same issuer.
type AuthConfig struct {
	BaseURL      string `yaml:"baseURL" envconfig:"KEYCLOAK_BASE_URL" default:"http://localhost:8080"`
	Realm        string `yaml:"realm" envconfig:"KEYCLOAK_REALM" default:"bookvault"`
	ClientID     string `yaml:"clientID" envconfig:"KEYCLOAK_CLIENT_ID" default:"bookvault-api"`
	ClientSecret string `yaml:"clientSecret" envconfig:"KEYCLOAK_CLIENT_SECRET"`
	RedirectURI  string `yaml:"redirectURI" envconfig:"KEYCLOAK_REDIRECT_URI"`
}

func (c AuthConfig) Issuer() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/realms/" + c.Realm
}

// StateStore keeps login state between the redirect to the provider and the
// callback. States are single use.
type StateStore interface {
	SaveState(ctx context.Context, state, redirectURI string) error
	TakeState(ctx context.Context, state string) (string, error)
}

// AuthService is a thin facade over the keycloak openid-connect endpoints.
// It owns no credentials beyond the confidential client secret; user
// passwords pass through to the provider and are never stored.
type AuthService struct {
	cfg    AuthConfig
	client *http.Client
	states StateStore
	cb     circuit_breaker.CircuitBreaker
	log    *zap.Logger
}

func NewAuthService(cfg AuthConfig, states StateStore, log *zap.Logger) *AuthService {
	return &AuthService{
		cfg:    cfg,
		states: states,
		log:    log.Named("auth"),
		client: &http.Client{
			Timeout: time.Minute,
		},
		cb: circuit_breaker.New(20, 10*time.Second, 0.5, 3),
	}
}

// doRequest sends a provider request through the circuit breaker. Only
// transport failures count against the breaker; an HTTP error status is a
// provider answer, not an outage.
func (s *AuthService) doRequest(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := s.cb.Call(func() error {
		var derr error
		resp, derr = s.client.Do(req)
		return derr
	})
	if err != nil {
		return nil, errs.NewService(errs.ServiceTemporary, "provider unreachable", err)
	}
	return resp, nil
}

// DirectLogin exchanges a username/password pair for a token set (resource
// owner password grant).
func (s *AuthService) DirectLogin(ctx context.Context, username, password string) (*model.Token, error) {
	if username == "" || password == "" {
		return nil, errs.Validation("username and password are required")
	}
	return s.tokenRequest(ctx, url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	})
}

// AuthCodeURL starts the authorization-code flow: it records a single-use
// state and returns the provider URL to redirect the browser to.
func (s *AuthService) AuthCodeURL(ctx context.Context, redirectURI string) (string, error) {
	if redirectURI == "" {
		redirectURI = s.cfg.RedirectURI
	}
	if redirectURI == "" {
		return "", errs.Validation("redirect uri is required")
	}

	state := uuid.NewString()
	if err := s.states.SaveState(ctx, state, redirectURI); err != nil {
		return "", errs.NewService(errs.ServiceInternal, "save oidc state", err)
	}

	q := url.Values{
		"client_id":     {s.cfg.ClientID},
		"response_type": {"code"},
		"scope":         {"openid profile email"},
		"redirect_uri":  {redirectURI},
		"state":         {state},
	}
	return s.endpoint("auth") + "?" + q.Encode(), nil
}

// ExchangeCode completes the authorization-code flow. The state must match
// one issued by AuthCodeURL; the redirect uri recorded with it is replayed
// to the provider.
func (s *AuthService) ExchangeCode(ctx context.Context, code, state string) (*model.Token, error) {
	if code == "" || state == "" {
		return nil, errs.Validation("code and state are required")
	}
	redirectURI, err := s.states.TakeState(ctx, state)
	if err != nil {
		return nil, err
	}
	return s.tokenRequest(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	})
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.Token, error) {
	if refreshToken == "" {
		return nil, errs.Validation("refresh token is required")
	}
	return s.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// Introspect asks the provider whether a token is active. An inactive token
// is a valid answer, not an error.
func (s *AuthService) Introspect(ctx context.Context, token string) (*model.Introspection, error) {
	if token == "" {
		return nil, errs.Validation("token is required")
	}
	body, err := s.postForm(ctx, s.endpoint("token/introspect"), url.Values{
		"token": {token},
	})
	if err != nil {
		return nil, err
	}
	var out model.Introspection
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errs.NewService(errs.ServiceOperation, "decode introspection", err)
	}
	return &out, nil
}

func (s *AuthService) UserInfo(ctx context.Context, accessToken string) (*model.UserInfo, error) {
	if accessToken == "" {
		return nil, errs.Validation("access token is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("userinfo"), nil)
	if err != nil {
		return nil, errs.NewService(errs.ServiceInternal, "build userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.NewService(errs.ServiceTemporary, "read userinfo response", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errs.Validation("access token is not valid")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, s.providerError("userinfo", resp.StatusCode, body)
	}

	var out model.UserInfo
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errs.NewService(errs.ServiceOperation, "decode userinfo", err)
	}
	return &out, nil
}

// Logout revokes the session behind a refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errs.Validation("refresh token is required")
	}
	_, err := s.postForm(ctx, s.endpoint("logout"), url.Values{
		"refresh_token": {refreshToken},
	})
	return err
}

func (s *AuthService) tokenRequest(ctx context.Context, form url.Values) (*model.Token, error) {
	body, err := s.postForm(ctx, s.endpoint("token"), form)
	if err != nil {
		return nil, err
	}
	var token model.Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, errs.NewService(errs.ServiceOperation, "decode token response", err)
	}
	return &token, nil
}

func (s *AuthService) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	form.Set("client_id", s.cfg.ClientID)
	if s.cfg.ClientSecret != "" {
		form.Set("client_secret", s.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.NewService(errs.ServiceInternal, "build provider request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.NewService(errs.ServiceTemporary, "read provider response", err)
	}

	switch {
	case resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, errs.Validation(providerMessage(body))
	default:
		return nil, s.providerError(endpoint, resp.StatusCode, body)
	}
}

func (s *AuthService) providerError(op string, status int, body []byte) error {
	s.log.Warn("provider request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.ByteString("body", body))
	return errs.NewService(errs.ServiceOperation, "provider request failed",
		errors.Errorf("status %d", status))
}

func (s *AuthService) endpoint(suffix string) string {
	return s.cfg.Issuer() + "/protocol/openid-connect/" + suffix
}

// providerMessage pulls the human-readable part out of an oauth error body.
func providerMessage(body []byte) string {
	var e struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) == nil && e.Description != "" {
		return e.Description
	}
	if e.Error != "" {
		return e.Error
	}
	return "invalid credentials"
}
