package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/straye-as/quotation-api/docs"
	"github.com/straye-as/quotation-api/internal/artifact"
	"github.com/straye-as/quotation-api/internal/config"
	"github.com/straye-as/quotation-api/internal/database"
	"github.com/straye-as/quotation-api/internal/document"
	"github.com/straye-as/quotation-api/internal/http/handler"
	"github.com/straye-as/quotation-api/internal/http/middleware"
	"github.com/straye-as/quotation-api/internal/http/router"
	"github.com/straye-as/quotation-api/internal/jobs"
	"github.com/straye-as/quotation-api/internal/lease"
	"github.com/straye-as/quotation-api/internal/locator"
	"github.com/straye-as/quotation-api/internal/logger"
	"github.com/straye-as/quotation-api/internal/repository"
	"github.com/straye-as/quotation-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title Straye Quotation API
// @version 1.0
// @description Serves quotation PDF documents and rebuilds missing ones from their quotation records

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "straye-quotation-staging.proudsmoke-10281cc0.norwayeast.azurecontainerapps.io"
	case "production":
		docs.SwaggerInfo.Host = "quotations.straye.no"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In development secrets come from the environment,
	// in staging/production from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	artifactStore, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Rebuild lease is only needed when several replicas share the store
	var locker lease.Locker = lease.Noop{}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		locker = lease.NewRedisLocker(redisClient, cfg.Redis.LeaseTTLDuration(), cfg.Redis.LeasePollIntervalDuration(), log)
		log.Info("Distributed rebuild lease enabled",
			zap.String("addr", cfg.Redis.Addr),
			zap.Duration("lease_ttl", cfg.Redis.LeaseTTLDuration()),
		)
	} else {
		log.Info("Redis not configured, rebuilds are coordinated within this process only")
	}

	builder := document.NewBuilder(cfg.Artifacts.CompanyName, cfg.Artifacts.Currency)
	coordinator := artifact.NewCoordinator(artifactStore, builder, locker, artifact.Options{
		ReadyTimeout:   cfg.Artifacts.ReadyTimeoutDuration(),
		WaitTimeout:    cfg.Artifacts.WaitTimeoutDuration(),
		RebuildTimeout: cfg.Artifacts.RebuildTimeoutDuration(),
	}, log)

	var scheduler *jobs.Scheduler
	if cfg.Warmup.Enabled {
		scheduler = jobs.NewScheduler(log)
		scheduler.Start()
	} else {
		log.Info("Artifact warm-up disabled")
	}

	// The API serves stored artifacts before the database is reachable.
	// Rebuilds wait for the coordinator to become ready.
	var db atomic.Pointer[gorm.DB]
	connectCtx, cancelConnect := context.WithCancel(ctx)
	defer cancelConnect()

	go func() {
		conn, err := database.ConnectWithRetry(connectCtx, &cfg.Database, log)
		if err != nil {
			log.Error("Giving up on database, artifacts can only be served from storage", zap.Error(err))
			return
		}

		if cfg.Database.AutoMigrate {
			if err := database.AutoMigrate(conn); err != nil {
				log.Error("Auto migration failed", zap.Error(err))
			}
		}
		db.Store(conn)

		quotationRepo := repository.NewQuotationRepository(conn)
		inquiryRepo := repository.NewInquiryRepository(conn)

		coordinator.Attach(artifact.Sources{
			Quotations: quotationRepo,
			Inquiries:  inquiryRepo,
			Locator:    locator.NewLocator(quotationRepo, inquiryRepo, log),
		})

		if scheduler != nil {
			if err := jobs.RegisterArtifactWarmupJob(
				scheduler,
				quotationRepo,
				coordinator,
				log,
				cfg.Warmup.Cron,
				cfg.Warmup.BatchSize,
				cfg.Warmup.TimeoutDuration(),
				cfg.Warmup.OnStartup,
			); err != nil {
				log.Error("Failed to register artifact warm-up job", zap.Error(err))
			}
		}
	}()

	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	artifactHandler := handler.NewArtifactHandler(coordinator, log)

	rt := router.NewRouter(
		cfg,
		log,
		db.Load,
		coordinator,
		rateLimiter,
		artifactHandler,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		cancelConnect()

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("Error closing redis connection", zap.Error(err))
			}
		}

		if conn := db.Load(); conn != nil {
			if sqlDB, err := conn.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
