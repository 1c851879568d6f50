package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/blogem/github-login/authenticator"
	"github.com/blogem/github-login/models"
	"github.com/blogem/github-login/repositories"
)

var (
	// ErrUnknownApp means no live configuration exists for the app_id.
	// Expired, consumed and never-registered apps are indistinguishable.
	ErrUnknownApp = errors.New("unknown app_id")
	// ErrStateMismatch means the callback state did not match the one
	// derived for the client.
	ErrStateMismatch = errors.New("state does not match")
	// ErrExchangeFailed means the provider token exchange could not be
	// completed or its response could not be decoded.
	ErrExchangeFailed = errors.New("token exchange failed")
)

// tokenResultFields are the normalized result parameters appended to the
// client callback URL. Fields missing from the provider response are
// carried as empty strings, never omitted.
var tokenResultFields = []string{
	"access_token",
	"expires_in",
	"refresh_token",
	"refresh_token_expires_in",
	"scope",
	"token_type",
}

// LoginParams are the inputs for building an authorization URL.
type LoginParams struct {
	AppID       string
	RedirectURI string
	Login       string
	AllowSignup string
	Scope       string
}

// CallbackParams are the inputs of a provider callback.
type CallbackParams struct {
	AppID string
	Code  string
	State string
}

// GithubAuthService interface defines the GitHub authentication flow logic
type GithubAuthService interface {
	DeriveState(config *models.ClientConfig) string
	ValidateState(state string, config *models.ClientConfig) bool
	AuthURL(params LoginParams) (string, error)
	TokenFetchURL(code, clientID, clientSecret string) string
	ExchangeCallback(ctx context.Context, params CallbackParams) (string, error)
	ClientInfo(host, loginPath, authPath string) []models.ClientInfo
	Register(ctx context.Context, form *models.ClientRegistrationForm) (*models.ClientConfig, error)
}

// githubAuthService implements GithubAuthService
type githubAuthService struct {
	registry ClientRegistry
	provider authenticator.Provider
	clients  repositories.ClientConfigRepository
}

// NewGithubAuthService creates a new GitHub auth service. The repository
// may be nil when registrations should not be persisted.
func NewGithubAuthService(registry ClientRegistry, provider authenticator.Provider, clients repositories.ClientConfigRepository) GithubAuthService {
	return &githubAuthService{
		registry: registry,
		provider: provider,
		clients:  clients,
	}
}

// DeriveState derives the anti-forgery state for a client.
//
// Known weakness: the state is a pure function of the public app_id, so
// it is guessable and does not provide real CSRF protection. Replacing
// it with a random nonce would change the contract for existing clients.
func (s *githubAuthService) DeriveState(config *models.ClientConfig) string {
	return config.AppID + "-state"
}

// ValidateState checks a callback state against the derived one.
func (s *githubAuthService) ValidateState(state string, config *models.ClientConfig) bool {
	return state == s.DeriveState(config)
}

// AuthURL prepares the URL of the GitHub login page for a client.
// The redirect_uri is passed through verbatim; it is not checked against
// any allow-list.
func (s *githubAuthService) AuthURL(params LoginParams) (string, error) {
	config := s.registry.Find(params.AppID)
	if config == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownApp, params.AppID)
	}

	allowSignup := params.AllowSignup
	if allowSignup == "" {
		allowSignup = "true"
	}

	query := url.Values{}
	query.Set("client_id", config.ClientID)
	query.Set("state", s.DeriveState(config))
	query.Set("redirect_uri", params.RedirectURI)
	query.Set("allow_signup", allowSignup)
	if params.Login != "" {
		query.Set("login", params.Login)
	}
	if params.Scope != "" {
		query.Set("scope", params.Scope)
	}

	return s.provider.AuthorizeURL() + "?" + query.Encode(), nil
}

// TokenFetchURL composes the URL of the code-for-token exchange.
// The URL carries the client_secret, so it must never reach a browser.
func (s *githubAuthService) TokenFetchURL(code, clientID, clientSecret string) string {
	query := url.Values{}
	query.Set("client_id", clientID)
	query.Set("client_secret", clientSecret)
	query.Set("code", code)
	return s.provider.TokenURL() + "?" + query.Encode()
}

// ExchangeCallback validates a provider callback, performs the token
// exchange and returns the client callback URL carrying the result.
//
// One-time configs are consumed before state validation. A replayed
// callback therefore always fails on the registry lookup and can never
// re-run the exchange; a failed exchange after consumption permanently
// invalidates the config. That ordering is the safety net against
// duplicate one-time use and must not change.
func (s *githubAuthService) ExchangeCallback(ctx context.Context, params CallbackParams) (string, error) {
	config := s.registry.Consume(params.AppID)
	if config == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownApp, params.AppID)
	}

	if !s.ValidateState(params.State, config) {
		return "", fmt.Errorf("%w for app %q", ErrStateMismatch, config.AppID)
	}

	fetchURL := s.TokenFetchURL(params.Code, config.ClientID, config.ClientSecret)
	fields, err := s.provider.FetchToken(ctx, fetchURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	query := url.Values{}
	if fields == nil {
		query.Set("success", "false")
	} else {
		for _, name := range tokenResultFields {
			query.Set(name, fields[name])
		}
	}

	return config.Callback + "?" + query.Encode(), nil
}

// ClientInfo returns the public view of all live clients.
func (s *githubAuthService) ClientInfo(host, loginPath, authPath string) []models.ClientInfo {
	configs := s.registry.All()
	info := make([]models.ClientInfo, 0, len(configs))
	for _, config := range configs {
		info = append(info, models.ClientInfo{
			AppID:       config.AppID,
			LoginURL:    host + loginPath + "?app=" + config.AppID,
			AuthURL:     host + authPath + "?app=" + config.AppID,
			CallbackURL: config.Callback,
			OneTime:     config.OneTime,
		})
	}
	return info
}

// Register validates and registers a dynamic client, then persists the
// full client list. Persistence is a best-effort snapshot hand-off; a
// failed write does not undo the registration.
func (s *githubAuthService) Register(ctx context.Context, form *models.ClientRegistrationForm) (*models.ClientConfig, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", strings.Join(errs, ", "))
	}

	config := form.ToClientConfig(time.Now())
	s.registry.Add(config)

	if s.clients != nil {
		if err := s.clients.ReplaceAll(ctx, s.registry.Snapshot()); err != nil {
			log.Printf("Failed to persist client configs: %v", err)
		}
	}

	return config, nil
}
