package services

import (
	"github.com/blogem/github-login/authenticator"
	"github.com/blogem/github-login/repositories"
)

// Services holds all service instances
type Services struct {
	Registry   ClientRegistry
	GithubAuth GithubAuthService
}

// NewServices creates and initializes all service instances
func NewServices(repos *repositories.Repositories, provider authenticator.Provider) *Services {
	registry := NewClientRegistry()
	var clients repositories.ClientConfigRepository
	if repos != nil {
		clients = repos.ClientConfigs
	}
	return &Services{
		Registry:   registry,
		GithubAuth: NewGithubAuthService(registry, provider, clients),
	}
}
