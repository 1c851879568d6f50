package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/blogem/github-login/services"
)

// respondJSON writes a JSON response with the provided status code
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// requestHost reconstructs the scheme and host the request was made to
func requestHost(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// Controllers holds all controller instances
type Controllers struct {
	Github *GithubController
}

// NewControllers creates and initializes all controller instances
func NewControllers(services *services.Services, opts GithubControllerOptions) *Controllers {
	return &Controllers{
		Github: NewGithubController(services.GithubAuth, opts),
	}
}
