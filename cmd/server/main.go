package main

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nimbusdrive/nimbus-server/internal/ai"
	"github.com/nimbusdrive/nimbus-server/internal/api"
	"github.com/nimbusdrive/nimbus-server/internal/api/handlers"
	"github.com/nimbusdrive/nimbus-server/internal/config"
	"github.com/nimbusdrive/nimbus-server/internal/extract"
	"github.com/nimbusdrive/nimbus-server/internal/repositories"
	"github.com/nimbusdrive/nimbus-server/internal/services"
)

// @title Nimbus Drive API
// @version 1.0
// @description Multi-tenant cloud file storage with share links and AI document analysis.
// @BasePath /
func main() {
	var logger *zap.Logger
	var err error
	if config.Envs.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := repositories.ConnectDatabase(config.Envs.DB_URL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	store := repositories.NewS3Store(config.Envs.S3)

	analyzer := ai.NewFromConfig(config.Envs.AI, logger)
	extractor := extract.NewDocumentExtractor()

	fileSvc := services.NewFileService(db, store, logger)
	shareSvc := services.NewShareService(db, logger)
	analysisSvc := services.NewAnalysisService(db, store, extractor, analyzer, logger)

	mux := api.SetupRouter(api.Handlers{
		Auth:        handlers.NewAuthHandler(db, logger),
		Files:       handlers.NewFileHandler(fileSvc, analysisSvc, logger),
		Directories: handlers.NewDirectoryHandler(fileSvc, logger),
		Shares:      handlers.NewShareHandler(shareSvc, fileSvc, logger),
		AI:          handlers.NewAIHandler(analysisSvc, fileSvc, logger),
	}, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Envs.Port),
		Handler: mux,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting Nimbus Drive server", zap.String("port", config.Envs.Port))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
