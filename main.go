package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homematch/ai"
	"homematch/config"
	"homematch/metrics"
	"homematch/routes"
	"homematch/search"
	"homematch/services"
	"homematch/socket"
	"homematch/store"
	"homematch/utils"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

var (
	rootCmd = &cobra.Command{
		Use:           "homematch",
		Short:         "Shared home search for two people",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and socket.io server",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the DynamoDB table with its indexes and TTL",
		RunE:  runMigrate,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

func openTable(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Table, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamo:
		logger.Info("Initializing DynamoDB client...", zap.String("table", cfg.DynamoTable), zap.String("region", cfg.AWSRegion))
		client, err := store.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return store.NewDynamoTable(client, cfg.DynamoTable, logger), nil
	case config.BackendBadger:
		return store.OpenBadger(store.BadgerConfig{Path: cfg.BadgerPath, InMemory: cfg.BadgerInMemory}, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	table, err := openTable(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer table.Close()
	instrumented := store.NewInstrumented(table, m)

	// Initialize Services
	rooms := services.NewRoomService(instrumented, logger, nil)
	listings := services.NewListingService(instrumented, logger, nil)
	ledger := services.NewLedgerService(instrumented, logger, nil, cfg.EventRetention)
	workflow := &services.Workflow{
		Rooms:         rooms,
		Preferences:   services.NewPreferenceService(instrumented, logger, nil),
		Listings:      listings,
		Ledger:        ledger,
		Compatibility: services.NewCompatibilityService(instrumented, logger, nil),
		Searcher: search.NewPortalProvider(search.Config{
			URLTemplate: cfg.SearchPortal,
			Source:      cfg.SearchSource,
			Timeout:     cfg.SearchTimeout,
			MaxResults:  cfg.SearchMax,
			MaxRetries:  cfg.SearchRetries,
			ChromeBin:   cfg.ChromeBin,
		}, nil, logger),
		Metrics: m,
		Logger:  logger,
	}

	if cfg.OpenAIAPIKey != "" {
		advisor, err := ai.NewOpenAIAdvisor(ai.Config{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.OpenAIModel,
			RequestsPerSecond: cfg.AIRatePerSec,
		}, logger)
		if err != nil {
			return err
		}
		workflow.Advisor = advisor
	} else {
		logger.Warn("⚠️ OPENAI_API_KEY not set, AI features are disabled")
	}

	var photos *services.PhotoService
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		photos = services.NewPhotoService(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.PhotoURLLifetime, listings, logger)
	} else {
		logger.Warn("⚠️ S3_BUCKET_NAME not set, photo uploads are disabled")
	}

	hub := socket.NewHub(rooms, logger, m)
	ledger.Publisher = hub
	go func() {
		if err := hub.Serve(); err != nil {
			logger.Error("❌ socket.io server stopped", zap.Error(err))
		}
	}()
	defer hub.Close()

	// Initialize the router
	r := mux.NewRouter()
	routes.RegisterRoutes(r, registry)
	routes.RegisterSocketRoutes(r, hub.Handler())
	routes.RegisterRoomRoutes(r, workflow, logger)
	routes.RegisterPreferenceRoutes(r, workflow, logger)
	routes.RegisterListingRoutes(r, workflow, photos, logger)
	routes.RegisterActivityRoutes(r, workflow, logger)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-User-ID"},
		AllowCredentials: true,
	}).Handler(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Starting server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.StoreBackend != config.BackendDynamo {
		logger.Info("Nothing to migrate for store backend", zap.String("store", cfg.StoreBackend))
		return nil
	}
	client, err := store.NewDynamoClient(cmd.Context(), cfg.AWSRegion, cfg.DynamoEndpoint)
	if err != nil {
		return err
	}
	return store.CreateDynamoTable(cmd.Context(), client, cfg.DynamoTable, logger)
}
