package models

import (
	"time"
)

// OneTimeClientExpiration is how long a dynamically registered one-time
// client stays usable before the registry sweeps it.
const OneTimeClientExpiration = 60 * time.Second

// ClientConfig holds the GitHub OAuth credentials of one registered
// application.
type ClientConfig struct {
	AppID        string     `json:"app_id"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Callback     string     `json:"callback"`
	OneTime      bool       `json:"oneTime,omitempty"`
	Expiration   *time.Time `json:"expiration,omitempty"`
}

// Expired reports whether the config carries an expiration that has passed.
// Configs without an expiration never expire.
func (c *ClientConfig) Expired(now time.Time) bool {
	return c.Expiration != nil && !now.Before(*c.Expiration)
}

// ClientInfo is the public view of a registered client returned by the
// info endpoint. Credentials are never included.
type ClientInfo struct {
	AppID       string `json:"app_id"`
	LoginURL    string `json:"loginUrl"`
	AuthURL     string `json:"authUrl"`
	CallbackURL string `json:"callbackUrl"`
	OneTime     bool   `json:"oneTime"`
}

// ClientRegistrationForm represents the query parameters of a dynamic
// client registration request.
type ClientRegistrationForm struct {
	AppID        string `json:"app_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Callback     string `json:"callback"`
	OneTime      string `json:"oneTime"`
}

// Validate validates the registration form data
func (f *ClientRegistrationForm) Validate() []string {
	var errors []string

	if f.AppID == "" {
		errors = append(errors, "app_id is required")
	}
	if f.ClientID == "" {
		errors = append(errors, "client_id is required")
	}
	if f.ClientSecret == "" {
		errors = append(errors, "client_secret is required")
	}
	if f.Callback == "" {
		errors = append(errors, "callback is required")
	}

	return errors
}

// OneTimeUse reports whether the registration asks for a one-time client.
// Anything other than the literal "false" (including an absent value)
// means one-time.
func (f *ClientRegistrationForm) OneTimeUse() bool {
	return f.OneTime != "false"
}

// ToClientConfig builds the config this form registers. One-time clients
// get a fixed expiration window starting at now.
func (f *ClientRegistrationForm) ToClientConfig(now time.Time) *ClientConfig {
	config := &ClientConfig{
		AppID:        f.AppID,
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		Callback:     f.Callback,
		OneTime:      f.OneTimeUse(),
	}
	if config.OneTime {
		expiration := now.Add(OneTimeClientExpiration)
		config.Expiration = &expiration
	}
	return config
}
