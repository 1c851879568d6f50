package controllers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blogem/github-login/middleware"
	"github.com/blogem/github-login/models"
	"github.com/blogem/github-login/services"
)

// GithubControllerOptions configures the route prefixes of the GitHub
// auth surface. Zero values fall back to the defaults.
type GithubControllerOptions struct {
	RootPath           string
	InfoPath           string
	LoginPath          string
	AuthPath           string
	ResultPath         string
	RegisterClientPath string
}

func (o GithubControllerOptions) withDefaults() GithubControllerOptions {
	if o.RootPath == "" {
		o.RootPath = "/"
	}
	if o.InfoPath == "" {
		o.InfoPath = "github/"
	}
	if o.LoginPath == "" {
		o.LoginPath = "github/login/"
	}
	if o.AuthPath == "" {
		o.AuthPath = "github/auth/"
	}
	if o.ResultPath == "" {
		o.ResultPath = "github/result/"
	}
	if o.RegisterClientPath == "" {
		o.RegisterClientPath = "github/register-client/"
	}
	return o
}

// GithubController exposes the GitHub authentication flow over HTTP
type GithubController struct {
	service services.GithubAuthService
	gate    middleware.Switch
	opts    GithubControllerOptions
}

// NewGithubController creates a new GitHub auth controller
func NewGithubController(service services.GithubAuthService, opts GithubControllerOptions) *GithubController {
	return &GithubController{
		service: service,
		opts:    opts.withDefaults(),
	}
}

// Activate enables the auth routes.
func (gc *GithubController) Activate() {
	gc.gate.Activate()
}

// Deactivate disables the auth routes; requests fall through to the next
// handler in the chain.
func (gc *GithubController) Deactivate() {
	gc.gate.Deactivate()
}

// Active reports whether the auth routes are enabled.
func (gc *GithubController) Active() bool {
	return gc.gate.Active()
}

// Handler returns the auth surface as a handler. Unmatched paths and all
// requests while deactivated are delegated to next.
func (gc *GithubController) Handler(next http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get(gc.opts.RootPath+gc.opts.InfoPath, gc.Info)
	r.Get(gc.opts.RootPath+gc.opts.LoginPath, gc.Login)
	r.Get(gc.opts.RootPath+gc.opts.AuthPath, gc.Auth)
	r.Get(gc.opts.RootPath+gc.opts.ResultPath, gc.Result)
	r.Get(gc.opts.RootPath+gc.opts.RegisterClientPath, gc.RegisterClient)
	r.NotFound(next.ServeHTTP)
	return middleware.ActiveGate(&gc.gate, r, next)
}

// Info lists the registered clients and their entry URLs
func (gc *GithubController) Info(w http.ResponseWriter, r *http.Request) {
	host := requestHost(r)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"host": host,
		"clients": gc.service.ClientInfo(
			host,
			gc.opts.RootPath+gc.opts.LoginPath,
			gc.opts.RootPath+gc.opts.AuthPath,
		),
	})
}

// Login redirects the browser to the GitHub authorization page
func (gc *GithubController) Login(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	appID := query.Get("app")
	if appID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": `Missing "?app=" parameter.`,
		})
		return
	}

	// The provider sends the browser back to our own auth route, which
	// finishes the exchange and forwards to the client callback.
	redirectURI := requestHost(r) + gc.opts.RootPath + gc.opts.AuthPath + "?app=" + appID

	authURL, err := gc.service.AuthURL(services.LoginParams{
		AppID:       appID,
		RedirectURI: redirectURI,
		Login:       query.Get("githubUsername"),
		AllowSignup: query.Get("allow_signup"),
		Scope:       query.Get("scope"),
	})
	if err != nil {
		log.Printf("Login failed: %v", err)
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Auth handles the provider callback and redirects to the client callback
// with the exchange result
func (gc *GithubController) Auth(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	appID := query.Get("app")
	if appID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": `Missing "?app=" parameter.`,
		})
		return
	}

	resultURL, err := gc.service.ExchangeCallback(r.Context(), services.CallbackParams{
		AppID: appID,
		Code:  query.Get("code"),
		State: query.Get("state"),
	})
	if err != nil {
		// State mismatches deliberately get the same response as unknown
		// apps and failed exchanges; the log line keeps them apart.
		log.Printf("Token exchange failed: %v", err)
		http.Error(w, "Unable to get auth token.", http.StatusNotFound)
		return
	}

	http.Redirect(w, r, resultURL, http.StatusFound)
}

// Result echoes the received query parameters, for clients without a
// callback endpoint of their own
func (gc *GithubController) Result(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{"success": true}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	respondJSON(w, http.StatusOK, payload)
}

// RegisterClient registers a client configuration at runtime
func (gc *GithubController) RegisterClient(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	form := &models.ClientRegistrationForm{
		AppID:        query.Get("app_id"),
		ClientID:     query.Get("client_id"),
		ClientSecret: query.Get("client_secret"),
		Callback:     query.Get("callback"),
		OneTime:      query.Get("oneTime"),
	}

	config, err := gc.service.Register(r.Context(), form)
	if err != nil {
		log.Printf("Client registration failed: %v", err)
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("Unable to register app %q. You need to specify all app_id, client_id, client_secret and callback", form.AppID),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"client": map[string]interface{}{
			"app_id":  config.AppID,
			"oneTime": config.OneTime,
		},
	})
}
