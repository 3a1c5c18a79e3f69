package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/cmd/backend/handlers"
	"github.com/draphael123/Evaluation-Tracker/database"
	"github.com/draphael123/Evaluation-Tracker/evaluation"
	"github.com/draphael123/Evaluation-Tracker/logger"
	"github.com/draphael123/Evaluation-Tracker/runner"
	"github.com/draphael123/Evaluation-Tracker/storage"
	"github.com/draphael123/Evaluation-Tracker/traversal"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	dbCfg := database.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	log.Info(ctx, "database connected", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})

	// Initialize blob storage for screenshots
	blobs, err := storage.NewBlobStorage(storage.Config{
		Type:            cfg.Storage.Type,
		BaseDir:         cfg.Storage.BaseDir,
		S3Bucket:        cfg.Storage.S3Bucket,
		S3Region:        cfg.Storage.S3Region,
		S3PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info(ctx, "storage initialized", map[string]interface{}{
		"type": cfg.Storage.Type,
	})

	// Initialize stores and the evaluation runner
	evaluationStore := evaluation.NewMySQLStore(db, log)

	factory := browser.NewChromeFactory(browser.ChromeOptions{
		Headless:  cfg.Runner.Headless,
		UserAgent: cfg.Runner.UserAgent,
	}, log)
	engine := traversal.NewEngine(blobs, nil, log)
	evalRunner := runner.NewRunner(factory, evaluationStore, engine, log)
	evalRunner.DefaultTimeout = cfg.Runner.RunTimeout

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	pool := runner.NewWorkerPool(cfg.Runner.MaxWorkers, evaluationStore, evalRunner, log)
	pool.Start(workerCtx)
	// Pick up runs left pending across restarts.
	pool.Notify()

	// Setup router
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	evaluationHandler := handlers.NewEvaluationHandler(evaluationStore, blobs, pool, log)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/evaluations", evaluationHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/evaluations", evaluationHandler.List).Methods("GET")
	apiRouter.HandleFunc("/evaluations/{id}", evaluationHandler.GetByID).Methods("GET")
	apiRouter.HandleFunc("/evaluations/{id}/screenshots/{step}", evaluationHandler.Screenshot).Methods("GET")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)
	stopWorkers()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
