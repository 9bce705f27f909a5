package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"liquiditymining/internal/api"
	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/config"
	"liquiditymining/internal/database"
	"liquiditymining/internal/metrics"
	"liquiditymining/internal/scenario"
	"liquiditymining/internal/service"
	"liquiditymining/internal/worker"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting liquidity mining rehearsal service")

	// Load configuration
	cfg, err := config.LoadConfig(os.Getenv("LM_CONFIG_FILE"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("rpc_url", cfg.Chain.RPCURL),
		zap.String("flavor", cfg.Chain.Flavor),
		zap.Bool("database", cfg.Database.Enabled))

	// Run ledger: PostgreSQL when enabled, process memory otherwise
	var store service.RunStore
	if cfg.Database.Enabled {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connected successfully")

		if err := database.RunMigrations(db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied successfully")
		store = db
	} else {
		logger.Warn("Database disabled, runs are kept in memory")
		store = database.NewMemoryStore()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Connect to the fork
	ctx := context.Background()
	client, err := evm.NewClient(ctx, &cfg.Chain, logger)
	if err != nil {
		logger.Fatal("Failed to connect to node", zap.Error(err))
	}
	defer client.Close()

	// Initialize services
	runService := service.NewRunService(store, logger)
	newRehearser := func() (worker.Rehearser, error) {
		h, err := scenario.NewHarness(cfg, client, logger)
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	logger.Info("Services initialized")

	// Initialize API handlers
	apiHandler := api.NewHandler(runService, api.NewChainPoolReader(client, logger), logger)
	router := api.SetupRouter(apiHandler, registry, logger)

	// Create HTTP server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", serverAddr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	// Start workers
	workerManager := worker.NewWorkerManager(&cfg.Worker, runService, client, newRehearser, m, logger)
	workerManager.Start()
	logger.Info("Workers started")

	logger.Info("Service initialized successfully",
		zap.String("status", "ready"),
		zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		logger.Error("HTTP server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Shutting down service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown workers first so a running rehearsal can revert the fork
	if err := workerManager.Shutdown(cfg.Chain.TxTimeout + 10*time.Second); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	logger.Info("Service stopped successfully")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
