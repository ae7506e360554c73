package routes

import (
	"net/http"

	"jobharvest/internal/api/handlers"
	"jobharvest/internal/api/middleware"
	"jobharvest/internal/background"
	"jobharvest/internal/config"
	"jobharvest/internal/logging"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, taskManager background.TaskManager, store handlers.JobStore, logger logging.Logger) {
	e.HTTPErrorHandler = handlers.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.RequestValidation())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit("1M"))
	e.Use(middleware.CORSConfig(cfg.Server.CORSOrigins))
	e.Use(middleware.TimeoutConfig(cfg.Server.WriteTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(taskManager))
		health.GET("/live", handlers.LivenessHandler)
	}

	e.GET("/status", handlers.StatusHandler(taskManager, store))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		scrape := v1.Group("/scrape")
		{
			scrape.POST("", handlers.ScrapeHandler(taskManager))
			scrape.GET("/:id", handlers.ScrapeStatusHandler(taskManager))
			scrape.POST("/:id/stop", handlers.StopScrapeHandler(taskManager))
		}

		v1.GET("/jobs", handlers.JobsHandler(store))
		v1.GET("/stats", handlers.StatsHandler(store))
	}

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "jobharvest",
			"version": handlers.Version,
			"status":  "running",
		})
	})
}
