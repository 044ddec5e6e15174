package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fleetdesk/fleetdesk-api/api/swagger"
	"github.com/fleetdesk/fleetdesk-api/internal/handler"
	"github.com/fleetdesk/fleetdesk-api/internal/repository"
	"github.com/fleetdesk/fleetdesk-api/internal/scheduler"
	"github.com/fleetdesk/fleetdesk-api/internal/service"
	"github.com/fleetdesk/fleetdesk-api/pkg/cache"
	"github.com/fleetdesk/fleetdesk-api/pkg/config"
	"github.com/fleetdesk/fleetdesk-api/pkg/database"
	"github.com/fleetdesk/fleetdesk-api/pkg/export"
	"github.com/fleetdesk/fleetdesk-api/pkg/jobs"
	"github.com/fleetdesk/fleetdesk-api/pkg/logger"
	corsmiddleware "github.com/fleetdesk/fleetdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fleetdesk/fleetdesk-api/pkg/middleware/requestid"
	"github.com/fleetdesk/fleetdesk-api/pkg/storage"
)

// @title FleetDesk API
// @version 1.0.0
// @description Back-office API for vehicle rental operations
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// repositories
	userRepo := repository.NewUserRepository(db)
	carRepo := repository.NewCarRepository(db)
	driverRepo := repository.NewDriverRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	schedulerRepo := repository.NewSchedulerRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// core services
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "fleetdesk-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	carSvc := service.NewCarService(carRepo, validate, logr)
	driverSvc := service.NewDriverService(driverRepo, validate, logr)
	partnerSvc := service.NewPartnerService(partnerRepo, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, carRepo, validate, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.WindowCacheTTL, logr, true)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr)

	// scheduler window cache + optimistic coordinator
	windowStore := scheduler.NewRedisStore(redisClient, cfg.Scheduler.WindowCacheTTL, logr)
	coordinator := scheduler.NewCoordinator(windowStore, bookingSvc, service.NewLogNotifier(logr), metricsSvc, logr)
	schedulerSvc := service.NewSchedulerService(windowStore, schedulerRepo, coordinator, metricsSvc, logr)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// KYC documents
	var documentSvc *service.DocumentService
	cronRunner := cron.New()
	if cfg.Documents.Enabled {
		docStorage, storageErr := storage.NewLocalStorage(cfg.Documents.StorageDir)
		if storageErr != nil {
			logr.Sugar().Fatalw("failed to init document storage", "error", storageErr)
		}
		docSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
		documentSvc = service.NewDocumentService(documentRepo, docStorage, docSigner, userRepo, logr, service.DocumentServiceConfig{
			MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Documents.AllowedMIMEs,
			APIPrefix:    cfg.APIPrefix,
		})

		sweep := documentSvc
		if _, cronErr := cronRunner.AddFunc(cfg.Documents.ExpirySweepSpec, func() {
			expired, sweepErr := sweep.ExpireOverdue(rootCtx)
			if sweepErr != nil {
				logr.Sugar().Warnw("document expiry sweep failed", "error", sweepErr)
				return
			}
			if expired > 0 {
				logr.Sugar().Infow("documents expired", "count", expired)
			}
		}); cronErr != nil {
			logr.Sugar().Fatalw("invalid document expiry sweep spec", "error", cronErr)
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	// async exports
	var exportJobSvc *service.ExportJobService
	if cfg.Exports.Enabled {
		exportStorage, storageErr := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if storageErr != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", storageErr)
		}
		exportSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, 24*time.Hour)
		exportSvc := service.NewExportService(
			analyticsRepo, bookingRepo, carRepo, driverRepo,
			exportStorage, exportSigner,
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: 24 * time.Hour},
			logr,
			export.NewCSVExporter(), export.NewPDFExporter(),
		)
		worker := service.NewExportWorker(exportJobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(rootCtx)
		defer queue.Stop()

		exportJobSvc = service.NewExportJobService(exportJobRepo, queue, exportSvc, logr, service.ExportJobServiceConfig{
			ResultTTL:       24 * time.Hour,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(rootCtx)
		go exportJobSvc.StartCleanup(rootCtx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, routeDeps{
		auth:      authSvc,
		users:     userSvc,
		metrics:   metricsSvc,
		userRepo:  userRepo,
		cars:      handler.NewCarHandler(carSvc),
		drivers:   handler.NewDriverHandler(driverSvc),
		partners:  handler.NewPartnerHandler(partnerSvc),
		bookings:  handler.NewBookingHandler(bookingSvc),
		scheduler: handler.NewSchedulerHandler(schedulerSvc),
		analytics: handler.NewAnalyticsHandler(analyticsSvc),
		documents: documentSvc,
		exports:   exportJobSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
