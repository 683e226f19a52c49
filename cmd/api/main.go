package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketsync-api/internal/config"
	"marketsync-api/internal/handler"
	"marketsync-api/internal/marketplace"
	"marketsync-api/internal/middleware"
	"marketsync-api/internal/queue"
	"marketsync-api/internal/repository"
	"marketsync-api/internal/router"
	"marketsync-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting MarketSync API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize engine store based on config
	var store repository.Store
	switch cfg.EngineDB.Type {
	case "postgres", "postgresql":
		pgStore, err := repository.NewPostgresStore(cfg.EngineDB.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		store = pgStore
		log.Println("PostgreSQL engine store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteStore(cfg.EngineDB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite engine store initialized")
	}
	defer store.Close()

	// Initialize MySQL connection for the merchant catalog (optional)
	var mysqlDB *sql.DB
	var catalogRepo repository.CatalogRepository

	mysqlDB, err := sql.Open("mysql", cfg.CatalogDB.DSN())
	if err != nil {
		log.Printf("Warning: catalog MySQL connection failed: %v", err)
	} else {
		mysqlDB.SetMaxOpenConns(10)
		mysqlDB.SetMaxIdleConns(5)
		mysqlDB.SetConnMaxLifetime(5 * time.Minute)

		if err := mysqlDB.Ping(); err != nil {
			log.Printf("Warning: catalog MySQL ping failed: %v", err)
			mysqlDB.Close()
			mysqlDB = nil
		} else {
			catalogRepo = repository.NewMySQLCatalogRepository(mysqlDB)
			log.Println("MySQL catalog repository initialized")
		}
	}
	if mysqlDB != nil {
		defer mysqlDB.Close()
	}
	if catalogRepo == nil {
		log.Fatal("Catalog database is required: inventory quantities are read from the merchant catalog")
	}

	// Initialize the pending-sync queue
	var syncQueue queue.SyncQueue
	if cfg.Cache.Type == "redis" {
		redisQueue, err := queue.NewRedisSyncQueue(queue.RedisQueueConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis queue unavailable, falling back to memory: %v", err)
			syncQueue = queue.NewMemorySyncQueue()
		} else {
			syncQueue = redisQueue
			log.Println("Redis sync queue initialized")
		}
	} else {
		syncQueue = queue.NewMemorySyncQueue()
		log.Println("In-memory sync queue initialized")
	}
	defer syncQueue.Close()

	// Initialize marketplace client
	markets, err := cfg.Marketplace.LoadMarkets()
	if err != nil {
		log.Fatalf("Failed to load market configuration: %v", err)
	}
	creds := marketplace.NewCredentialProvider(markets)
	dispatcher := marketplace.NewDispatcher(creds, cfg.Marketplace.ServiceName, cfg.Marketplace.DefaultMarket)
	apiClient := marketplace.NewClient(dispatcher, creds)

	// Initialize services
	scheduler := service.NewTickerScheduler()
	defer scheduler.Stop()

	inventoryService := service.NewInventoryService(apiClient, store, catalogRepo, syncQueue, service.InventoryServiceConfig{
		MaxRetries: cfg.Sync.MaxRetries,
		Cooldown:   cfg.Sync.RetryCooldown,
		BulkSize:   cfg.Sync.BulkInventorySize,
	})
	feedService := service.NewFeedService(apiClient, store, service.PassthroughBuilder{}, scheduler, inventoryService, service.FeedServiceConfig{
		ChunkSize:      cfg.Sync.ChunkSize,
		InventoryDelay: cfg.Sync.InventoryDelay,
	})
	poller := service.NewStatusPoller(apiClient, store)
	aggregator := service.NewBatchAggregator(store, syncQueue)
	upcPool := service.NewUPCPoolService(store, catalogRepo)

	// Recurring sweeps: poll open feeds, reconcile batches, drain the
	// pending-sync queue; separately, re-drive failed inventory syncs.
	scheduler.ScheduleRecurring("feed-status-sweep", cfg.Sync.PollInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.PollInterval)
		defer cancel()

		results := poller.Sweep(ctx)
		aggregator.Reconcile(ctx, results)
		inventoryService.DrainQueue(ctx)
	})
	scheduler.ScheduleRecurring("inventory-retry", cfg.Sync.RetryInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.RetryInterval)
		defer cancel()

		inventoryService.RetrySweep(ctx)
	})

	// Initialize handlers
	healthHandler := handler.New()
	feedHandler := handler.NewFeedHandler(feedService, poller, store)
	batchHandler := handler.NewBatchHandler(store)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, store)
	adminHandler := handler.NewAdminHandler(store, syncQueue, upcPool)

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{})

	// Create router
	r := router.New(router.Config{
		Handler:          healthHandler,
		FeedHandler:      feedHandler,
		BatchHandler:     batchHandler,
		InventoryHandler: inventoryHandler,
		AdminHandler:     adminHandler,
		AuthMiddleware:   authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the schedulers before the store goes away.
	scheduler.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
