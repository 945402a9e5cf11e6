package api

import (
	"github.com/gin-gonic/gin"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
	"github.com/subdesk/subdesk/internal/rest/middleware"
	"github.com/subdesk/subdesk/internal/types"
)

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger, registry *metrics.Registry) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.LoggingMiddleware(log, registry),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", handlers.Health.Health)
	if registry != nil {
		router.GET("/metrics", gin.WrapH(registry.Handler()))
	}

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, cfg)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, cfg *config.Configuration) {
	customers := router.Group("/customers")
	{
		customers.POST("", handlers.Customer.CreateCustomer)
		customers.GET("", handlers.Customer.GetCustomers)
		customers.GET("/:id", handlers.Customer.GetCustomer)
		customers.PUT("/:id", handlers.Customer.UpdateCustomer)
		customers.DELETE("/:id", handlers.Customer.DeleteCustomer)
	}

	plans := router.Group("/plans")
	{
		plans.POST("", handlers.Plan.CreatePlan)
		plans.GET("", handlers.Plan.GetPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.PUT("/:id", handlers.Plan.UpdatePlan)
		plans.POST("/:id/toggle", handlers.Plan.TogglePlan)
		plans.DELETE("/:id", handlers.Plan.DeletePlan)
	}

	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("", handlers.Subscription.GetSubscriptions)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
		subscriptions.PUT("/:id", handlers.Subscription.UpdateSubscription)
		subscriptions.DELETE("/:id", handlers.Subscription.DeleteSubscription)
	}

	billing := router.Group("/billing")
	{
		billing.POST("/generate",
			middleware.RateLimit(cfg.Billing.TriggerInterval()),
			handlers.Billing.GenerateInvoices,
		)
		billing.GET("/history", handlers.Billing.GetHistory)
	}

	router.GET("/dashboard/stats", handlers.Dashboard.GetStats)

	if cfg.Debug.Enabled {
		debug := router.Group("/debug")
		{
			debug.POST("/reset-invoices", handlers.Debug.ResetInvoices)
			debug.POST("/set-due-today", handlers.Debug.SetDueToday)
		}
	}
}
