package authenticator

import (
	"context"
)

// TokenFields holds the raw fields of a provider token response, with all
// values coerced to strings. A nil map means the provider answered with an
// empty body.
type TokenFields map[string]string

// Provider interface abstracts the OAuth provider endpoints
type Provider interface {
	// AuthorizeURL returns the base URL of the provider's authorization page.
	AuthorizeURL() string
	// TokenURL returns the base URL of the provider's token endpoint.
	TokenURL() string
	// FetchToken performs the code-for-token exchange against the given
	// fully composed URL.
	FetchToken(ctx context.Context, url string) (TokenFields, error)
}
