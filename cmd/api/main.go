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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/chainsync-ai/alertbridge/pkg/validator"

	"github.com/chainsync-ai/alertbridge/internal/adapter/handler"
	"github.com/chainsync-ai/alertbridge/internal/adapter/repository"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/database"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/external/chainsync"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/external/slotify"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/external/textgen"
	httpmw "github.com/chainsync-ai/alertbridge/internal/infrastructure/http/middleware"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/ratelimit"
	"github.com/chainsync-ai/alertbridge/internal/usecase/pipeline"
	"github.com/chainsync-ai/alertbridge/internal/usecase/policy"
	"github.com/chainsync-ai/alertbridge/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate in CI/CD.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Applying migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; apply them with sql-migrate in CI/CD/production")
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	alertRepo := repository.NewAlertRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	learningRepo := repository.NewLearningRepository(db)
	webhookLogRepo := repository.NewWebhookLogRepository(db)
	pipelineStore := repository.NewPipelineStore(db)

	// Initialize rate limiting
	log.Println("🚦 Initializing rate limiter...")
	var redisClient *redis.Client
	if cfg.Security.RateLimitBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	limiterCtx, limiterCancel := context.WithTimeout(context.Background(), 5*time.Second)
	limiter := ratelimit.New(limiterCtx, cfg.Security.RateLimitBackend, redisClient, logger)
	limiterCancel()
	defer limiter.Close()

	// Initialize external clients
	log.Println("🤖 Initializing external clients...")
	groqClient := textgen.NewClient(&cfg.Groq, logger)
	if !groqClient.Available() {
		log.Println("⚠️  Groq API key not set: briefings will use templated text")
	}
	slotifyClient := slotify.NewClient(&cfg.Slotify, logger)
	if slotifyClient.MockMode() {
		log.Println("⚠️  Slotify running in MOCK mode (no real meetings created)")
	}
	chainsyncClient := chainsync.NewClient(&cfg.ChainSync, logger)
	if chainsyncClient.MockMode() {
		log.Println("⚠️  ChainSync running in MOCK mode (no status updates sent)")
	}

	// Initialize policy engine
	log.Println("⚖️  Loading urgency policy...")
	policyCfg, err := policy.LoadConfig(cfg.Policy.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load policy config: %v", err)
	}
	engine := policy.NewEngine(policyCfg)

	// Initialize pipeline
	log.Println("🔗 Initializing alert pipeline...")
	orchestrator := pipeline.NewOrchestrator(
		alertRepo,
		meetingRepo,
		pipelineStore,
		slotifyClient,
		chainsyncClient,
		pipeline.NewRootCauseStage(groqClient, logger),
		pipeline.NewComplianceStage(groqClient, logger),
		pipeline.NewMeetingContextStage(engine, groqClient, logger),
		pipeline.NewLearningStage(learningRepo, logger),
		logger,
	)

	// Repair any meetings left without their alert flag from a previous run
	reconcileCtx, reconcileCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := orchestrator.ReconcileOrphans(reconcileCtx, 500); err != nil {
		log.Printf("⚠️  Orphan reconciliation failed: %v", err)
	}
	reconcileCancel()

	// Initialize security gateway
	log.Println("🔐 Initializing webhook security gateway...")
	gateway := httpmw.NewSecurityGateway(&cfg.Security, limiter, webhookLogRepo, logger)

	// Initialize handlers
	log.Println("🪝 Initializing webhook handlers...")
	alertHandler := handler.NewAlertWebhook(orchestrator, logger)
	meetingHandler := handler.NewMeetingWebhook(meetingRepo, logger)
	queryHandler := handler.NewQuery(alertRepo, meetingRepo, webhookLogRepo, cfg, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, alertHandler, meetingHandler, queryHandler, gateway.Middleware())
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	// Let in-flight learning writes finish before the DB handle closes
	orchestrator.Wait()

	log.Println("✅ Server stopped gracefully")
}
