package handlers

import (
	"net/http"
	"strconv"
	"time"

	"jobharvest/internal/api/middleware"
	"jobharvest/internal/background"
	"jobharvest/internal/logging"
	"jobharvest/pkg/models"

	"github.com/labstack/echo/v4"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

var startTime = time.Now()

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	logging.GetGlobalLogger().Debug("Health check requested", map[string]interface{}{
		"request_id": middleware.RequestID(c),
	})

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// ReadinessHandler reports ready only while the task manager accepts runs
func ReadinessHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, code := "ready", http.StatusOK
		tasks := "ok"
		if !taskManager.IsHealthy() {
			status, code = "not_ready", http.StatusServiceUnavailable
			tasks = "stopped"
		}

		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks: map[string]string{
				"api":   "ok",
				"tasks": tasks,
			},
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
	})
}

// StatusHandler provides service status including the active run and the
// size of the job store
func StatusHandler(taskManager background.TaskManager, store JobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := map[string]string{
			"api":   "operational",
			"tasks": "operational",
			"jobs":  strconv.Itoa(len(store.Documents())),
		}
		if !taskManager.IsHealthy() {
			checks["tasks"] = "stopped"
		}
		if active := taskManager.ActiveTask(); active != "" {
			checks["active_run"] = active
		}
		if last := store.LastUpdated(); !last.IsZero() {
			checks["last_scrape"] = last.UTC().Format(time.RFC3339)
		}

		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "operational",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}
