package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tokenhaus/marketd/internal/api/middleware"
	"github.com/tokenhaus/marketd/internal/api/server"
	"github.com/tokenhaus/marketd/internal/config"
	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/logger"
	"github.com/tokenhaus/marketd/internal/market"
	"github.com/tokenhaus/marketd/internal/messaging"
	"github.com/tokenhaus/marketd/internal/providers/jetstream"
	"github.com/tokenhaus/marketd/internal/store"
	"github.com/tokenhaus/marketd/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "marketd-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting marketd API")

	// Resolve the administrative identity
	admin, err := domain.NormalizeIdentity(cfg.Market.Admin)
	if err != nil {
		logger.Fatal("Invalid market admin identity", zap.Error(err), zap.String("admin", cfg.Market.Admin))
	}

	// Initialize store
	var dataStore store.Store
	switch cfg.Market.Store {
	case config.StorePostgres:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.Fatal("Failed to configure connection pool", zap.Error(err))
		}
		if err := store.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to migrate database schema", zap.Error(err))
		}
		logger.Info("Connected to database",
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)
		dataStore = store.NewPGStore(db)
	case config.StoreMemory:
		logger.Warn("Using in-memory store, all state is lost on restart")
		dataStore = store.NewMemoryStore()
	default:
		logger.Fatal("Unknown store backend", zap.String("store", cfg.Market.Store))
	}

	// Assemble event publishers
	var publishers []messaging.Publisher
	if cfg.NATS.URL != "" {
		jsPublisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		})
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		defer jsPublisher.Close()
		logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL), zap.String("stream", cfg.NATS.StreamName))
		publishers = append(publishers, jsPublisher)
	}
	if len(cfg.Webhook.Clients) > 0 {
		clients := make([]webhook.Client, 0, len(cfg.Webhook.Clients))
		for _, c := range cfg.Webhook.Clients {
			clients = append(clients, webhook.Client{
				Name:   c.Name,
				URL:    c.URL,
				Secret: c.Secret,
			})
		}
		notifier := webhook.NewNotifier(webhook.Config{
			Clients:    clients,
			MaxRetries: cfg.Webhook.MaxRetries,
			Timeout:    cfg.Webhook.Timeout,
			PoolSize:   cfg.Webhook.PoolSize,
		})
		defer notifier.Close()
		logger.Info("Webhook delivery enabled", zap.Int("clients", len(clients)))
		publishers = append(publishers, notifier)
	}

	var publisher messaging.Publisher
	switch len(publishers) {
	case 0:
		publisher = messaging.NoopPublisher{}
	case 1:
		publisher = publishers[0]
	default:
		publisher = messaging.MultiPublisher(publishers)
	}

	// Create the marketplace engine
	engine := market.NewEngine(dataStore, publisher, market.Config{
		Admin:     admin,
		URIScheme: cfg.Market.URIScheme,
	})

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
			Admin:        admin,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, engine)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.Error(err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
