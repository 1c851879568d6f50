package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/blogem/github-login/authenticator"
	"github.com/blogem/github-login/config"
	"github.com/blogem/github-login/controllers"
	"github.com/blogem/github-login/database"
	"github.com/blogem/github-login/repositories"
	"github.com/blogem/github-login/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load environment variables from .env file, if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load the env vars: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize repositories
	repos := repositories.NewRepositories(db)

	// Initialize the GitHub provider and services
	provider := authenticator.NewGithubProvider()
	srvs := services.NewServices(repos, provider)

	// Restore persisted clients, then add the statically configured ones
	persisted, err := repos.ClientConfigs.LoadAll(context.Background())
	if err != nil {
		log.Fatalf("Failed to load persisted clients: %v", err)
	}
	srvs.Registry.Restore(persisted)
	for i := range cfg.SeedClients {
		seed := cfg.SeedClients[i]
		srvs.Registry.Add(&seed)
	}

	// Initialize controllers
	ctrl := controllers.NewControllers(srvs, controllers.GithubControllerOptions{
		RootPath: cfg.RootPath,
	})

	// Set up router
	r := setupRouter(ctrl)

	fmt.Printf("🚀 GitHub login server starting on port %s\n", cfg.Port)
	fmt.Printf("📂 Visit: http://localhost:%s%sgithub/\n", cfg.Port, cfg.RootPath)
	fmt.Printf("🗃️  Database: %s\n", cfg.DBPath)

	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

// setupRouter configures all routes
func setupRouter(ctrl *controllers.Controllers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second)) // generous timeout for OAuth callbacks
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "service": "github-login"}`)
	})

	// The auth surface falls through to the static file server when a
	// path does not match or the controller is deactivated.
	static := http.FileServer(http.Dir("static/"))
	r.Handle("/*", ctrl.Github.Handler(static))

	return r
}
