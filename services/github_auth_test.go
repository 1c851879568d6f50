package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/blogem/github-login/authenticator"
	"github.com/blogem/github-login/models"
)

// fakeClientConfigRepository records snapshot writes in memory
type fakeClientConfigRepository struct {
	saved []models.ClientConfig
	err   error
}

func (f *fakeClientConfigRepository) LoadAll(_ context.Context) ([]models.ClientConfig, error) {
	return f.saved, f.err
}

func (f *fakeClientConfigRepository) ReplaceAll(_ context.Context, configs []models.ClientConfig) error {
	if f.err != nil {
		return f.err
	}
	f.saved = configs
	return nil
}

// GithubAuthServiceTestSuite is a test suite for the GitHub auth service
type GithubAuthServiceTestSuite struct {
	suite.Suite
	registry    ClientRegistry
	service     GithubAuthService
	repo        *fakeClientConfigRepository
	tokenServer *httptest.Server

	// behavior of the fake token endpoint, reset per test
	tokenResponse string
	// last request seen by the fake token endpoint
	lastMethod string
	lastAccept string
	lastQuery  url.Values
}

// SetupTest sets up the test suite before each test
func (suite *GithubAuthServiceTestSuite) SetupTest() {
	suite.tokenResponse = `{"access_token":"tok"}`
	suite.lastMethod = ""
	suite.lastAccept = ""
	suite.lastQuery = nil

	suite.tokenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.lastMethod = r.Method
		suite.lastAccept = r.Header.Get("Accept")
		suite.lastQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(suite.tokenResponse))
	}))

	provider := authenticator.NewGithubProviderWithEndpoints(
		"https://github.test/login/oauth/authorize",
		suite.tokenServer.URL,
	)

	suite.registry = NewClientRegistry()
	suite.repo = &fakeClientConfigRepository{}
	suite.service = NewGithubAuthService(suite.registry, provider, suite.repo)
}

// TearDownTest tears down the test suite after each test
func (suite *GithubAuthServiceTestSuite) TearDownTest() {
	suite.tokenServer.Close()
}

func (suite *GithubAuthServiceTestSuite) addClient(appID string, oneTime bool) *models.ClientConfig {
	config := &models.ClientConfig{
		AppID:        appID,
		ClientID:     "c1",
		ClientSecret: "s1",
		Callback:     "http://cb",
		OneTime:      oneTime,
	}
	suite.registry.Add(config)
	return config
}

func (suite *GithubAuthServiceTestSuite) TestDeriveStateIsDeterministic() {
	config := &models.ClientConfig{AppID: "app1"}

	assert.Equal(suite.T(), "app1-state", suite.service.DeriveState(config))
	assert.Equal(suite.T(), suite.service.DeriveState(config), suite.service.DeriveState(config))
	assert.True(suite.T(), suite.service.ValidateState(suite.service.DeriveState(config), config))
	assert.False(suite.T(), suite.service.ValidateState("other-state", config))
	assert.False(suite.T(), suite.service.ValidateState("", config))
}

func (suite *GithubAuthServiceTestSuite) TestAuthURLRoundTrip() {
	suite.addClient("app1", false)

	authURL, err := suite.service.AuthURL(LoginParams{
		AppID:       "app1",
		RedirectURI: "http://r",
	})
	require.NoError(suite.T(), err)

	parsed, err := url.Parse(authURL)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "https", parsed.Scheme)
	assert.Equal(suite.T(), "github.test", parsed.Host)
	assert.Equal(suite.T(), "/login/oauth/authorize", parsed.Path)

	query := parsed.Query()
	assert.Equal(suite.T(), "c1", query.Get("client_id"))
	assert.Equal(suite.T(), "app1-state", query.Get("state"))
	assert.Equal(suite.T(), "http://r", query.Get("redirect_uri"))
	assert.Equal(suite.T(), "true", query.Get("allow_signup"))
	assert.False(suite.T(), query.Has("login"))
	assert.False(suite.T(), query.Has("scope"))
}

func (suite *GithubAuthServiceTestSuite) TestAuthURLOptionalParams() {
	suite.addClient("app1", false)

	authURL, err := suite.service.AuthURL(LoginParams{
		AppID:       "app1",
		RedirectURI: "http://r",
		Login:       "octocat",
		AllowSignup: "false",
		Scope:       "repo user",
	})
	require.NoError(suite.T(), err)

	parsed, err := url.Parse(authURL)
	require.NoError(suite.T(), err)

	query := parsed.Query()
	assert.Equal(suite.T(), "octocat", query.Get("login"))
	assert.Equal(suite.T(), "false", query.Get("allow_signup"))
	assert.Equal(suite.T(), "repo user", query.Get("scope"))
}

func (suite *GithubAuthServiceTestSuite) TestAuthURLUnknownApp() {
	_, err := suite.service.AuthURL(LoginParams{AppID: "missing", RedirectURI: "http://r"})

	assert.ErrorIs(suite.T(), err, ErrUnknownApp)
	assert.Contains(suite.T(), err.Error(), `"missing"`)
}

func (suite *GithubAuthServiceTestSuite) TestAuthURLExpiredApp() {
	past := time.Now().Add(-time.Second)
	suite.registry.Add(&models.ClientConfig{AppID: "gone", Expiration: &past})

	_, err := suite.service.AuthURL(LoginParams{AppID: "gone", RedirectURI: "http://r"})

	assert.ErrorIs(suite.T(), err, ErrUnknownApp)
}

func (suite *GithubAuthServiceTestSuite) TestTokenFetchURL() {
	fetchURL := suite.service.TokenFetchURL("thecode", "c1", "s1")

	parsed, err := url.Parse(fetchURL)
	require.NoError(suite.T(), err)

	query := parsed.Query()
	assert.Equal(suite.T(), "c1", query.Get("client_id"))
	assert.Equal(suite.T(), "s1", query.Get("client_secret"))
	assert.Equal(suite.T(), "thecode", query.Get("code"))
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackSuccess() {
	suite.addClient("app2", true)

	resultURL, err := suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app2",
		Code:  "x",
		State: "app2-state",
	})
	require.NoError(suite.T(), err)

	// The exchange is a POST with Accept: application/json carrying the
	// client credentials and the code.
	assert.Equal(suite.T(), http.MethodPost, suite.lastMethod)
	assert.Equal(suite.T(), "application/json", suite.lastAccept)
	assert.Equal(suite.T(), "c1", suite.lastQuery.Get("client_id"))
	assert.Equal(suite.T(), "s1", suite.lastQuery.Get("client_secret"))
	assert.Equal(suite.T(), "x", suite.lastQuery.Get("code"))

	parsed, err := url.Parse(resultURL)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "http", parsed.Scheme)
	assert.Equal(suite.T(), "cb", parsed.Host)

	// All six result fields are present; missing ones are empty strings.
	query := parsed.Query()
	assert.Equal(suite.T(), "tok", query.Get("access_token"))
	for _, field := range []string{"expires_in", "refresh_token", "refresh_token_expires_in", "scope", "token_type"} {
		assert.True(suite.T(), query.Has(field), "missing field %s", field)
		assert.Equal(suite.T(), "", query.Get(field))
	}
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackOneTimeSecondCallFails() {
	suite.addClient("app2", true)

	_, err := suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app2", Code: "x", State: "app2-state",
	})
	require.NoError(suite.T(), err)

	_, err = suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app2", Code: "x", State: "app2-state",
	})
	assert.ErrorIs(suite.T(), err, ErrUnknownApp)
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackWrongState() {
	suite.addClient("app2", true)

	_, err := suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app2", Code: "x", State: "wrong",
	})
	assert.ErrorIs(suite.T(), err, ErrStateMismatch)

	// The one-time config was consumed before state validation, so even a
	// failed attempt burns it.
	assert.Nil(suite.T(), suite.registry.Find("app2"))

	// The exchange itself never ran.
	assert.Empty(suite.T(), suite.lastMethod)
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackWrongStateKeepsReusableConfig() {
	suite.addClient("app1", false)

	_, err := suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app1", Code: "x", State: "wrong",
	})
	assert.ErrorIs(suite.T(), err, ErrStateMismatch)
	assert.NotNil(suite.T(), suite.registry.Find("app1"))
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackNullResponse() {
	suite.tokenResponse = "null"
	suite.addClient("app1", false)

	resultURL, err := suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app1", Code: "x", State: "app1-state",
	})
	require.NoError(suite.T(), err)

	parsed, err := url.Parse(resultURL)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), url.Values{"success": {"false"}}, parsed.Query())
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackNumericExpiresIn() {
	suite.tokenResponse = `{"access_token":"tok","expires_in":28800,"token_type":"bearer"}`
	suite.addClient("app1", false)

	resultURL, err := suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app1", Code: "x", State: "app1-state",
	})
	require.NoError(suite.T(), err)

	parsed, err := url.Parse(resultURL)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "28800", parsed.Query().Get("expires_in"))
	assert.Equal(suite.T(), "bearer", parsed.Query().Get("token_type"))
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackMalformedResponse() {
	suite.tokenResponse = "not json"
	suite.addClient("app1", false)

	_, err := suite.service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app1", Code: "x", State: "app1-state",
	})
	assert.ErrorIs(suite.T(), err, ErrExchangeFailed)
}

func (suite *GithubAuthServiceTestSuite) TestExchangeCallbackProviderUnreachable() {
	// Point the provider at a server that is already gone.
	deadServer := httptest.NewServer(http.NotFoundHandler())
	deadServer.Close()
	provider := authenticator.NewGithubProviderWithEndpoints("https://github.test/authorize", deadServer.URL)
	service := NewGithubAuthService(suite.registry, provider, nil)
	suite.addClient("app1", false)

	_, err := service.ExchangeCallback(context.Background(), CallbackParams{
		AppID: "app1", Code: "x", State: "app1-state",
	})
	assert.ErrorIs(suite.T(), err, ErrExchangeFailed)
}

func (suite *GithubAuthServiceTestSuite) TestClientInfo() {
	suite.addClient("app1", false)
	suite.addClient("app2", true)

	info := suite.service.ClientInfo("http://localhost", "/github/login/", "/github/auth/")

	require.Len(suite.T(), info, 2)
	assert.Equal(suite.T(), models.ClientInfo{
		AppID:       "app1",
		LoginURL:    "http://localhost/github/login/?app=app1",
		AuthURL:     "http://localhost/github/auth/?app=app1",
		CallbackURL: "http://cb",
		OneTime:     false,
	}, info[0])
	assert.True(suite.T(), info[1].OneTime)
}

func (suite *GithubAuthServiceTestSuite) TestRegister() {
	form := &models.ClientRegistrationForm{
		AppID:        "app2",
		ClientID:     "client2",
		ClientSecret: "secret2",
		Callback:     "http://localhost/callback2",
	}

	before := time.Now()
	config, err := suite.service.Register(context.Background(), form)
	require.NoError(suite.T(), err)

	assert.True(suite.T(), config.OneTime)
	require.NotNil(suite.T(), config.Expiration)
	expected := before.Add(models.OneTimeClientExpiration)
	assert.WithinDuration(suite.T(), expected, *config.Expiration, time.Second)

	// Registered client is live and the full list was persisted.
	assert.Same(suite.T(), config, suite.registry.Find("app2"))
	require.Len(suite.T(), suite.repo.saved, 1)
	assert.Equal(suite.T(), "app2", suite.repo.saved[0].AppID)
}

func (suite *GithubAuthServiceTestSuite) TestRegisterPermanentClient() {
	form := &models.ClientRegistrationForm{
		AppID:        "app2",
		ClientID:     "client2",
		ClientSecret: "secret2",
		Callback:     "http://localhost/callback2",
		OneTime:      "false",
	}

	config, err := suite.service.Register(context.Background(), form)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), config.OneTime)
	assert.Nil(suite.T(), config.Expiration)
}

func (suite *GithubAuthServiceTestSuite) TestRegisterIncomplete() {
	form := &models.ClientRegistrationForm{
		AppID:    "app2",
		ClientID: "client2",
		Callback: "http://localhost/callback2",
	}

	_, err := suite.service.Register(context.Background(), form)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "client_secret is required")
	assert.Nil(suite.T(), suite.registry.Find("app2"))
	assert.Empty(suite.T(), suite.repo.saved)
}

func TestGithubAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GithubAuthServiceTestSuite))
}
