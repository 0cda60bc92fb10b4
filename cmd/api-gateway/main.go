package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/campus-feed-api/api/swagger"
	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/handler"
	"github.com/noah-isme/campus-feed-api/internal/repository"
	"github.com/noah-isme/campus-feed-api/internal/service"
	"github.com/noah-isme/campus-feed-api/pkg/cache"
	"github.com/noah-isme/campus-feed-api/pkg/config"
	"github.com/noah-isme/campus-feed-api/pkg/database"
	"github.com/noah-isme/campus-feed-api/pkg/jobs"
	"github.com/noah-isme/campus-feed-api/pkg/logger"
	"github.com/noah-isme/campus-feed-api/pkg/phone"
	"github.com/noah-isme/campus-feed-api/pkg/storage"
)

// @title Campus Feed API
// @version 1.0.0
// @description Campus events, announcements and the derived feed
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	store, err := storage.NewLocalStorage(cfg.Storage.BaseDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare asset storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	phones, err := phone.NewNormalizer(cfg.Phone)
	if err != nil {
		logr.Sugar().Fatalw("invalid phone numbering plan", "error", err)
	}

	loc := cfg.Feed.Location()
	validate := validator.New()
	metrics := service.NewMetricsService()

	queue := jobs.NewQueue("assets", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
	})

	eventRepo := repository.NewEventRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	userRepo := repository.NewUserRepository(db)
	shopRepo := repository.NewShopRepository(db)
	assetRepo := repository.NewAssetRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Feed.CacheTTL, logr, true)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-feed-api",
	})
	assetSvc := service.NewAssetService(store, signer, assetRepo, metrics, logr, service.AssetConfig{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		AllowedMIMEs:   cfg.Storage.AllowedMIMEs,
		Image: storage.ImageOptions{
			MaxWidth:      cfg.Storage.MaxImageWidth,
			MaxHeight:     cfg.Storage.MaxImageHeight,
			ThumbnailSize: cfg.Storage.ThumbnailSize,
			Quality:       cfg.Storage.WebPQuality,
		},
		OrphanTTL:       cfg.Storage.OrphanTTL,
		DownloadBaseURL: cfg.APIPrefix + "/assets/download",
	})
	assetSvc.RegisterJobs(queue)

	eventSvc := service.NewEventService(eventRepo, queue, cacheSvc, validate, logr, service.EventConfig{
		Location:          loc,
		RecurrenceHorizon: cfg.Feed.RecurrenceHorizon,
		MaxDates:          cfg.Feed.MaxDatesPerEvent,
	})
	announcementSvc := service.NewAnnouncementService(announcementRepo, queue, cacheSvc, validate, logr)
	feedSvc := service.NewFeedService(eventRepo, announcementRepo, cacheSvc, metrics, logr, service.FeedConfig{
		Location: loc,
		Options: feed.Options{
			SuggestionLimit:  cfg.Feed.SuggestionLimit,
			BannerWindowDays: cfg.Feed.BannerWindowDays,
		},
		CacheTTL:       cfg.Feed.CacheTTL,
		BannerInterval: cfg.Feed.BannerInterval,
	})
	calendarSvc := service.NewCalendarService(eventRepo, loc, logr)
	exportSvc := service.NewExportService(feedSvc, logr)
	profileSvc := service.NewProfileService(userRepo, shopRepo, phones, store, queue, validate, logr)
	sellerSvc := service.NewSellerService(shopRepo, userRepo, phones, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	maintenanceSvc := service.NewMaintenanceService(cacheSvc, assetSvc, metrics, logr, service.MaintenanceConfig{
		Location:          loc,
		CacheRolloverCron: cfg.Maintenance.CacheRolloverCron,
		OrphanCleanupCron: cfg.Maintenance.OrphanCleanupCron,
	})

	queue.Start(ctx)
	defer queue.Stop()
	if cfg.Maintenance.Enabled {
		if err := maintenanceSvc.Start(); err != nil {
			logr.Sugar().Fatalw("failed to start maintenance scheduler", "error", err)
		}
		defer maintenanceSvc.Stop()
	}

	r := newRouter(cfg, logr, routeDeps{
		validator:     authSvc,
		audit:         userRepo,
		limiter:       cache.NewRateLimiter(redisClient, "ratelimit"),
		metrics:       metrics,
		authH:         handler.NewAuthHandler(authSvc),
		profileH:      handler.NewProfileHandler(profileSvc),
		sellerH:       handler.NewSellerHandler(sellerSvc),
		userH:         handler.NewUserHandler(userSvc),
		eventH:        handler.NewEventHandler(eventSvc, calendarSvc, exportSvc),
		announcementH: handler.NewAnnouncementHandler(announcementSvc),
		feedH:         handler.NewFeedHandler(feedSvc, logr),
		assetH:        handler.NewAssetHandler(assetSvc, cfg.Storage.MaxUploadBytes),
		metricsH: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
