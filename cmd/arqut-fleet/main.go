package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tphan267/arqut-fleet/apis"
	"github.com/tphan267/arqut-fleet/pkg/config"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/providers/directory"
	"github.com/tphan267/arqut-fleet/pkg/providers/fleet"
	"github.com/tphan267/arqut-fleet/pkg/providers/ledger"
	"github.com/tphan267/arqut-fleet/pkg/providers/settings"
	"github.com/tphan267/arqut-fleet/pkg/providers/stats"
	"github.com/tphan267/arqut-fleet/pkg/storage"
	"github.com/tphan267/arqut-fleet/pkg/uplink"
)

var version = "dev"

func main() {
	var (
		configFile  string
		logLevel    string
		showVersion bool
	)
	flag.StringVar(&configFile, "config", "config.yaml", "Path to the config file")
	flag.StringVar(&logLevel, "loglevel", "", "Set the log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Print the version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	// Load configuration
	cfg, err := config.Load(version, configFile, logLevel)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewDefault("FLEET")
	appLogger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	appLogger.Info("Starting Arqut Fleet %s...", cfg.Version)

	// Initialize storage
	store, err := storage.Open(storage.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DSN(),
	}, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	appLogger.Info("Storage ready (%s)", cfg.DBDriver)

	// Create uplink client if CloudURL is configured
	var up *uplink.Client
	if cfg.CloudURL != "" {
		up, err = uplink.NewClient(cfg.CloudURL, appLogger)
		if err != nil {
			log.Fatalf("Failed to create uplink client: %v", err)
		}
		defer up.Close()
		appLogger.Info("Uplink client initialized with cloud URL: %s", cfg.CloudURL)
	} else {
		appLogger.Info("Cloud URL not configured, running without cloud uplink")
	}

	registry := createServiceRegistry(store, appLogger, cfg, up)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registry.InitializeAll(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if err := registry.StartRunnable(ctx); err != nil {
		log.Fatalf("Failed to start runnable services: %v", err)
	}

	// Providers hook into the uplink during Initialize, so connect afterwards
	if up != nil {
		if cfg.APIKey != "" {
			appLogger.Info("API Key: %s", maskAPIKey(cfg.APIKey))
			up.Connect(ctx, cfg.APIKey, cfg.EdgeID, cfg.ServerAddr)
		} else {
			appLogger.Warn("API_KEY not configured, skipping uplink connection")
		}
	}

	srv := apis.New(registry)
	if err := srv.RegisterRoutes(); err != nil {
		log.Fatalf("Failed to register service routes: %v", err)
	}

	go func() {
		if err := srv.Start(cfg.ServerAddr); err != nil {
			appLogger.Error("Server stopped: %v", err)
			cancel()
		}
	}()

	// Wait for interrupt signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown error: %v", err)
	}

	if err := registry.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Service shutdown error: %v", err)
	}

	appLogger.Info("Server exited")
}

// createServiceRegistry creates the registry and registers the providers.
// Stats reads through the ledger, so the ledger goes first.
func createServiceRegistry(store storage.Storage, log *logger.Logger, cfg *config.Config, up *uplink.Client) *providers.Registry {
	registry := providers.NewRegistry(store, log, cfg, up)

	registry.MustRegister(fleet.NewFleetProvider())
	registry.MustRegister(ledger.NewLedgerProvider())
	registry.MustRegister(stats.NewService())
	registry.MustRegister(directory.NewService(nil))
	registry.MustRegister(settings.NewService())

	return registry
}

// maskAPIKey masks the API key for logging (shows first 8 chars)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:8] + "***"
}
