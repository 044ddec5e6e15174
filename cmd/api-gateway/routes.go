package main

import (
	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleetdesk-api/internal/handler"
	"github.com/fleetdesk/fleetdesk-api/internal/middleware"
	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/internal/repository"
	"github.com/fleetdesk/fleetdesk-api/internal/service"
	"github.com/fleetdesk/fleetdesk-api/pkg/config"
)

type routeDeps struct {
	auth      *service.AuthService
	users     *service.UserService
	metrics   *service.MetricsService
	userRepo  *repository.UserRepository
	cars      *handler.CarHandler
	drivers   *handler.DriverHandler
	partners  *handler.PartnerHandler
	bookings  *handler.BookingHandler
	scheduler *handler.SchedulerHandler
	analytics *handler.AnalyticsHandler
	documents *service.DocumentService
	exports   *service.ExportJobService
}

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps) {
	metricsHandler := handler.NewMetricsHandler(deps.metrics)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Metrics(deps.metrics))
	api.Use(middleware.WithResponseMeta())

	authHandler := handler.NewAuthHandler(deps.auth)
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", middleware.JWT(deps.auth))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(deps.auth))

	userHandler := handler.NewUserHandler(deps.users)
	users := protected.Group("/users", middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	operate := middleware.RequireRoles(models.RoleAdmin, models.RoleOperator)

	cars := protected.Group("/cars")
	{
		cars.GET("", deps.cars.List)
		cars.GET("/:id", deps.cars.Get)
		cars.POST("", operate, deps.cars.Create)
		cars.PUT("/:id", operate, deps.cars.Update)
		cars.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), deps.cars.Delete)
	}

	drivers := protected.Group("/drivers")
	{
		drivers.GET("", deps.drivers.List)
		drivers.GET("/:id", deps.drivers.Get)
		drivers.POST("", operate, deps.drivers.Create)
		drivers.PUT("/:id", operate, deps.drivers.Update)
		drivers.DELETE("/:id", operate, deps.drivers.Deactivate)
	}

	partners := protected.Group("/partners")
	{
		partners.GET("", deps.partners.List)
		partners.GET("/:id", deps.partners.Get)
		partners.GET("/:id/cars", deps.partners.Cars)
		partners.POST("", operate, deps.partners.Create)
		partners.PUT("/:id", operate, deps.partners.Update)
		partners.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), deps.partners.Deactivate)
	}

	bookings := protected.Group("/bookings")
	{
		bookings.GET("", deps.bookings.List)
		bookings.GET("/:id", deps.bookings.Get)
		bookings.POST("", operate, deps.bookings.Create)
		bookings.PUT("/:id", operate, deps.bookings.Update)
		bookings.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), deps.bookings.Delete)
	}

	mutationAudit := middleware.Audit(deps.userRepo, models.AuditActionBookingMutation, "scheduler")
	sched := protected.Group("/scheduler")
	{
		sched.GET("/window", deps.scheduler.Window)
		sched.POST("/maintenance", operate, mutationAudit, deps.scheduler.CreateMaintenance)
		sched.PATCH("/bookings/:id/status", operate, mutationAudit, deps.scheduler.UpdateStatus)
		sched.PATCH("/bookings/:id/resize", operate, mutationAudit, deps.scheduler.Resize)
		sched.PATCH("/bookings/:id/buffer", operate, mutationAudit, deps.scheduler.UpdateBuffer)
		sched.POST("/bookings/:id/early-return/quote", operate, deps.scheduler.QuoteEarlyReturn)
		sched.POST("/bookings/:id/early-return", operate, mutationAudit, deps.scheduler.EarlyReturn)
		sched.POST("/bookings/:id/split", operate, mutationAudit, deps.scheduler.Split)
		sched.POST("/bookings/:id/reassign", operate, mutationAudit, deps.scheduler.Reassign)
		sched.POST("/bookings/:id/approve",
			operate,
			middleware.Audit(deps.userRepo, models.AuditActionOverride, "scheduler"),
			deps.scheduler.Approve)
	}

	analytics := protected.Group("/analytics")
	{
		analytics.GET("/fleet-utilization", deps.analytics.FleetUtilization)
		analytics.GET("/partner-payouts", deps.analytics.PartnerPayouts)
		analytics.GET("/system", middleware.RequireRoles(models.RoleAdmin), deps.analytics.System)
	}

	if deps.documents != nil {
		documentHandler := handler.NewDocumentHandler(deps.documents)
		documents := protected.Group("/documents")
		{
			documents.POST("", operate, documentHandler.Upload)
			documents.GET("", documentHandler.List)
			documents.GET("/:id", documentHandler.Get)
			documents.POST("/:id/review", middleware.RequireRoles(models.RoleAdmin), documentHandler.Review)
			documents.GET("/:id/download", documentHandler.Download)
			documents.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), documentHandler.Delete)
		}
	}

	if deps.exports != nil {
		exportHandler := handler.NewExportHandler(deps.exports)
		exports := protected.Group("/exports")
		{
			exports.POST("", operate, exportHandler.Create)
			exports.GET("/:id", exportHandler.Status)
		}
		// download is authenticated by the signed token itself
		api.GET("/exports/download/:token", exportHandler.Download)
	}
}
