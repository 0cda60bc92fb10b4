package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/handler"
	"github.com/noah-isme/campus-feed-api/internal/middleware"
	"github.com/noah-isme/campus-feed-api/internal/models"
	"github.com/noah-isme/campus-feed-api/internal/service"
	"github.com/noah-isme/campus-feed-api/pkg/config"
	"github.com/noah-isme/campus-feed-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-feed-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-feed-api/pkg/middleware/requestid"
)

type routeDeps struct {
	validator middleware.TokenValidator
	audit     middleware.AuditWriter
	limiter   middleware.Limiter
	metrics   *service.MetricsService

	authH         *handler.AuthHandler
	profileH      *handler.ProfileHandler
	sellerH       *handler.SellerHandler
	userH         *handler.UserHandler
	eventH        *handler.EventHandler
	announcementH *handler.AnnouncementHandler
	feedH         *handler.FeedHandler
	assetH        *handler.AssetHandler
	metricsH      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Metrics(d.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.metricsH.Health)
	r.GET("/ready", d.metricsH.Ready)
	r.GET("/metrics", d.metricsH.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(d.limiter, "api", cfg.RateLimit.Requests, cfg.RateLimit.Window, logr))
	}
	authRequired := middleware.JWT(d.validator)
	optionalAuth := middleware.OptionalJWT(d.validator)

	api.GET("/metrics/summary", authRequired, middleware.RequireRoles(models.RoleAdmin), d.metricsH.Snapshot)

	auth := api.Group("/auth")
	auth.POST("/register", d.authH.Register)
	auth.POST("/login", d.authH.Login)
	auth.POST("/refresh", d.authH.Refresh)
	auth.POST("/logout", authRequired, d.authH.Logout)
	auth.POST("/change-password", authRequired, d.authH.ChangePassword)
	auth.GET("/me", authRequired, d.authH.Me)

	profile := api.Group("/profile", authRequired)
	profile.GET("", d.profileH.Get)
	profile.PUT("", d.profileH.Update)

	sellers := api.Group("/sellers", authRequired)
	sellers.GET("/shop-name/availability", d.sellerH.ShopNameAvailability)
	sellers.POST("/onboard", middleware.RequireRoles(models.RoleStudent), d.sellerH.Onboard)

	users := api.Group("/users", authRequired, middleware.RequireRoles(models.RoleAdmin))
	users.GET("", d.userH.List)
	users.GET("/:id", d.userH.Get)
	users.PUT("/:id/access", d.userH.UpdateAccess)

	events := api.Group("/events")
	events.GET("", optionalAuth, d.eventH.List)
	events.GET("/export", optionalAuth, d.eventH.Export)
	events.GET("/:id", d.eventH.Get)
	events.GET("/:id/calendar.ics", d.eventH.CalendarICS)
	events.GET("/:id/calendar-link", d.eventH.CalendarLink)
	events.POST("", authRequired, middleware.Audit(d.audit, logr, models.AuditActionCreate, models.AuditResourceEvent), d.eventH.Create)
	events.PUT("/:id", authRequired, middleware.Audit(d.audit, logr, models.AuditActionUpdate, models.AuditResourceEvent), d.eventH.Update)
	events.DELETE("/:id", authRequired, middleware.Audit(d.audit, logr, models.AuditActionDelete, models.AuditResourceEvent), d.eventH.Delete)

	announcements := api.Group("/announcements")
	announcements.GET("", optionalAuth, d.announcementH.List)
	announcements.GET("/:id", d.announcementH.Get)
	announcements.POST("", authRequired, middleware.Audit(d.audit, logr, models.AuditActionCreate, models.AuditResourceAnnouncement), d.announcementH.Create)
	announcements.PUT("/:id", authRequired, middleware.Audit(d.audit, logr, models.AuditActionUpdate, models.AuditResourceAnnouncement), d.announcementH.Update)
	announcements.DELETE("/:id", authRequired, middleware.Audit(d.audit, logr, models.AuditActionDelete, models.AuditResourceAnnouncement), d.announcementH.Delete)

	feedGroup := api.Group("/feed", optionalAuth)
	feedGroup.POST("", d.feedH.View)
	feedGroup.GET("/banner", d.feedH.Banner)
	feedGroup.GET("/banner/stream", d.feedH.BannerStream)
	feedGroup.GET("/suggestions", d.feedH.Suggestions)

	assets := api.Group("/assets")
	assets.GET("/download", d.assetH.Download)
	assets.POST("/signed", authRequired, d.assetH.Signed)
	assets.POST("/:bucket", authRequired, d.assetH.Upload)

	return r
}
