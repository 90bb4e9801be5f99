package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tokengrid/evm-indexer/internal/adapter"
	"github.com/tokengrid/evm-indexer/internal/api/server"
	"github.com/tokengrid/evm-indexer/internal/chain"
	"github.com/tokengrid/evm-indexer/internal/config"
	"github.com/tokengrid/evm-indexer/internal/dispatch"
	"github.com/tokengrid/evm-indexer/internal/etherscan"
	"github.com/tokengrid/evm-indexer/internal/logger"
	"github.com/tokengrid/evm-indexer/internal/resolver"
	"github.com/tokengrid/evm-indexer/internal/store"
	"github.com/tokengrid/evm-indexer/internal/uri"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMetadataWorkerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "metadata-worker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting Metadata Worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime,
	); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	httpClient := adapter.NewHTTPClient(30 * time.Second)

	// Connect to the chain RPC
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.Fatal("Failed to connect to Ethereum RPC", zap.Error(err),
			zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	chainReader := chain.NewReader(ethClient)
	defer chainReader.Close()
	logger.Info("Connected to Ethereum RPC")

	// Initialize URI and metadata resolvers
	uriResolver := uri.NewResolver(httpClient, &uri.Config{
		IPFSGateways:    cfg.URI.IPFSGateways,
		ArweaveGateways: cfg.URI.ArweaveGateways,
	})
	scan := etherscan.New(httpClient, cfg.Etherscan.BaseURL, cfg.Etherscan.APIKey)

	metadataResolver := resolver.New(
		dataStore,
		uriResolver,
		httpClient,
		chainReader,
		scan,
		resolver.Config{
			MaxWorkers:           cfg.Resolver.MaxWorkers,
			RetryInitialInterval: cfg.Resolver.RetryInitialInterval,
			RetryMaxElapsedTime:  cfg.Resolver.RetryMaxElapsedTime,
		},
	)
	defer metadataResolver.Stop()

	// Create dispatcher and HTTP server
	dispatcher := dispatch.NewDispatcher(metadataResolver)

	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, dispatcher)

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel for server errors
	errCh := make(chan error, 1)

	// Start the server
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error(err, zap.String("component", "server"))
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, zap.String("component", "server"))
	}

	logger.Info("Metadata Worker stopped")
}
