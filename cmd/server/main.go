package main // Entry point package

import (
	"context"
	"log" // Logging library
	"time"

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/library-lending/internal/config"     // Internal config loader
	"github.com/iliyamo/library-lending/internal/database"   // MySQL pool setup
	"github.com/iliyamo/library-lending/internal/handler"    // HTTP handlers
	"github.com/iliyamo/library-lending/internal/middleware" // Redis cache and rate limit middleware
	"github.com/iliyamo/library-lending/internal/queue"      // RabbitMQ publisher and consumer
	"github.com/iliyamo/library-lending/internal/repository" // MySQL stores
	"github.com/iliyamo/library-lending/internal/router"     // Route registration
	"github.com/iliyamo/library-lending/internal/service"    // Business services
)

func main() {
	// Load a local .env file when present.  Real deployments set the
	// environment directly, so a missing file is not an error.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load() // Load environment config

	// Open the MySQL pool and fail fast when the database is unreachable.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := repository.NewLendingStore(db)
	accounts := repository.NewAccountStore(db)

	// Lending events go out through RabbitMQ after commit; the service
	// logs publish failures and never fails the operation on them.
	notifier := queue.NewPublisher()

	lending := service.NewLendingService(store, notifier, cfg)
	members := service.NewMemberService(store)
	auth := service.NewAuthService(accounts, cfg)

	// Seed the bootstrap ADMIN account when ADMIN_USERNAME is set.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := auth.EnsureAdmin(ctx); err != nil {
		log.Printf("admin bootstrap: %v", err)
	}
	cancel()

	// Run the notification consumer in the background.  It reconnects on
	// broker failures and only returns on unrecoverable setup errors.
	go func() {
		if err := queue.StartLendingConsumer(); err != nil {
			log.Printf("lending consumer stopped: %v", err)
		}
	}()

	// Redis backs the response cache and the auth rate limiter.  When the
	// server is unreachable the client is nil and both features are
	// skipped rather than blocking startup.
	var cacheMW, limitMW echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		limitMW = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Printf("redis unavailable, response cache and rate limiting disabled")
	}

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), limitMW)
	router.RegisterLibrary(e, handler.NewLibraryHandler(lending), cfg.JWTSecret, cacheMW)
	router.RegisterMembers(e, handler.NewMemberHandler(members, lending), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
