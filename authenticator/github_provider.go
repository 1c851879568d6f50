package authenticator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/github"
)

// exchangeTimeout bounds the token-exchange call so a stalled provider
// cannot hang a callback request indefinitely.
const exchangeTimeout = 10 * time.Second

// GithubProvider implements the Provider interface for GitHub's OAuth web
// application flow
type GithubProvider struct {
	authorizeURL string
	tokenURL     string
	client       *http.Client
}

// NewGithubProvider creates a provider pointing at GitHub's public OAuth
// endpoints
func NewGithubProvider() *GithubProvider {
	return NewGithubProviderWithEndpoints(github.Endpoint.AuthURL, github.Endpoint.TokenURL)
}

// NewGithubProviderWithEndpoints creates a provider with custom endpoint
// base URLs. Used by tests and GitHub Enterprise deployments.
func NewGithubProviderWithEndpoints(authorizeURL, tokenURL string) *GithubProvider {
	return &GithubProvider{
		authorizeURL: authorizeURL,
		tokenURL:     tokenURL,
		client:       &http.Client{Timeout: exchangeTimeout},
	}
}

// AuthorizeURL returns the authorization page base URL
func (p *GithubProvider) AuthorizeURL() string {
	return p.authorizeURL
}

// TokenURL returns the token endpoint base URL
func (p *GithubProvider) TokenURL() string {
	return p.tokenURL
}

// FetchToken POSTs to the composed token URL and decodes the JSON response.
// GitHub reports errors as 200 responses with error fields, so the status
// code is not inspected; the fields are passed through as-is. A null or
// empty body yields a nil map and no error.
func (p *GithubProvider) FetchToken(ctx context.Context, url string) (TokenFields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil {
		// io.EOF means an empty body, which is treated like a null object.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	fields := make(TokenFields, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case nil:
			fields[key] = ""
		default:
			fields[key] = fmt.Sprintf("%v", v)
		}
	}
	return fields, nil
}
