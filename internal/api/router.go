package api

import (
	"fmt"
	"net/http"

	_ "github.com/nimbusdrive/nimbus-server/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nimbusdrive/nimbus-server/internal/api/handlers"
	"github.com/nimbusdrive/nimbus-server/internal/api/middleware"
	"github.com/nimbusdrive/nimbus-server/internal/config"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Handlers bundles the route targets the router wires up.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Files       *handlers.FileHandler
	Directories *handlers.DirectoryHandler
	Shares      *handlers.ShareHandler
	AI          *handlers.AIHandler
}

func SetupRouter(h Handlers, logger *zap.Logger) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("POST /sign-up", h.Auth.Register)
	authMux.HandleFunc("POST /login", h.Auth.Login)
	authMux.HandleFunc("GET /google/login", h.Auth.GoogleLogin)
	authMux.HandleFunc("GET /google/callback", h.Auth.GoogleCallback)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	// Share redemption is reachable without a session.
	publicShareMux := http.NewServeMux()
	publicShareMux.HandleFunc("GET /{code}", h.Shares.Info)
	publicShareMux.HandleFunc("POST /{code}/download", h.Shares.Download)

	mainMux.Handle("/share/",
		http.StripPrefix("/share", publicShareMux),
	)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()

	fileMux := http.NewServeMux()
	fileMux.HandleFunc("POST /upload", h.Files.Upload)
	fileMux.HandleFunc("POST /batch", h.Files.Batch)
	fileMux.HandleFunc("GET /{$}", h.Files.List)
	fileMux.HandleFunc("GET /{id}", h.Files.Get)
	fileMux.HandleFunc("GET /{id}/download", h.Files.Download)
	fileMux.HandleFunc("PATCH /{id}/rename", h.Files.Rename)
	fileMux.HandleFunc("PATCH /{id}/move", h.Files.Move)
	fileMux.HandleFunc("DELETE /{id}", h.Files.Delete)

	dirMux := http.NewServeMux()
	dirMux.HandleFunc("POST /{$}", h.Directories.Create)
	dirMux.HandleFunc("GET /{$}", h.Directories.List)
	dirMux.HandleFunc("GET /{id}", h.Directories.Get)
	dirMux.HandleFunc("PATCH /{id}/rename", h.Directories.Rename)
	dirMux.HandleFunc("PATCH /{id}/move", h.Directories.Move)
	dirMux.HandleFunc("DELETE /{id}", h.Directories.Delete)

	shareMux := http.NewServeMux()
	shareMux.HandleFunc("POST /{$}", h.Shares.Create)
	shareMux.HandleFunc("GET /{$}", h.Shares.List)
	shareMux.HandleFunc("DELETE /{id}", h.Shares.Delete)

	aiMux := http.NewServeMux()
	aiMux.HandleFunc("POST /analyze/{id}", h.AI.Reanalyze)
	aiMux.HandleFunc("GET /analysis/{id}", h.AI.GetAnalysis)
	aiMux.HandleFunc("GET /categories", h.AI.Categories)
	aiMux.HandleFunc("GET /tags", h.AI.Tags)

	protectedMux.Handle("/files/",
		http.StripPrefix("/files", fileMux),
	)
	protectedMux.Handle("/directories/",
		http.StripPrefix("/directories", dirMux),
	)
	protectedMux.Handle("/shares/",
		http.StripPrefix("/shares", shareMux),
	)
	protectedMux.Handle("/ai/",
		http.StripPrefix("/ai", aiMux),
	)

	protectedMux.HandleFunc("GET /search", h.Files.Search)
	protectedMux.HandleFunc("GET /storage", h.Files.Usage)
	protectedMux.HandleFunc("POST /auth/logout", h.Auth.Logout)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.AuthMiddleware(protectedMux),
		),
	)

	logger.Info("router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(logger, handler)
	return handler
}
