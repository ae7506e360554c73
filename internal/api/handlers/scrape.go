package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"jobharvest/internal/api/middleware"
	"jobharvest/internal/background"
	"jobharvest/internal/logging"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// ScrapeHandler accepts a harvest run for background processing. Only one run
// may be active; a second request while one is queued or running gets 409.
func ScrapeHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := middleware.RequestID(c)
		logger := logging.GetGlobalLogger().WithField("request_id", requestID)

		var req models.ScrapeRequest
		if err := c.Bind(&req); err != nil {
			logger.Warn("Failed to bind scrape request", map[string]interface{}{"error": err.Error()})
			return errorJSON(c, http.StatusBadRequest, "invalid_request", "Invalid request format")
		}

		if err := validate.Struct(&req); err != nil {
			logger.Warn("Scrape request validation failed", map[string]interface{}{"error": err.Error()})
			return errorJSON(c, http.StatusBadRequest, "validation_failed", err.Error())
		}

		processID := uuid.NewString()
		err := taskManager.SubmitHarvest(context.Background(), processID, background.TaskTypeHarvest, req)
		switch {
		case err == nil:
		case errors.Is(err, background.ErrRunInProgress):
			return c.JSON(http.StatusConflict, models.CreateAsyncErrorResponse(
				"run_in_progress", err.Error(), taskManager.ActiveTask()))
		case errors.Is(err, background.ErrQueueFull), errors.Is(err, background.ErrNotRunning):
			return errorJSON(c, http.StatusServiceUnavailable, "service_unavailable", err.Error())
		default:
			logger.Error("Failed to submit harvest", map[string]interface{}{"error": err.Error()})
			return errorJSON(c, http.StatusInternalServerError, "submission_failed", "Failed to submit harvest run")
		}

		logger.Info("Harvest run accepted", map[string]interface{}{
			"process_id": processID,
			"keywords":   req.Keywords,
			"sources":    req.Sources,
		})

		return c.JSON(http.StatusAccepted, models.CreateAsyncScrapeResponse(processID))
	}
}

// ScrapeStatusHandler returns the state of a harvest run
func ScrapeStatusHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		processID := c.Param("id")

		result, err := taskManager.GetTaskResult(c.Request().Context(), processID)
		if err != nil {
			if errors.Is(err, background.ErrTaskNotFound) {
				return c.JSON(http.StatusNotFound, models.CreateAsyncErrorResponse(
					"not_found", "No harvest run with this process ID", processID))
			}
			return utils.NewInternalServerError(err.Error())
		}

		return c.JSON(http.StatusOK, taskStatusResponse(result))
	}
}

// StopScrapeHandler cancels a queued or running harvest run
func StopScrapeHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		processID := c.Param("id")

		err := taskManager.Cancel(c.Request().Context(), processID)
		switch {
		case err == nil:
		case errors.Is(err, background.ErrTaskNotFound):
			return c.JSON(http.StatusNotFound, models.CreateAsyncErrorResponse(
				"not_found", "No harvest run with this process ID", processID))
		case errors.Is(err, background.ErrTaskCompleted):
			return c.JSON(http.StatusConflict, models.CreateAsyncErrorResponse(
				"already_completed", err.Error(), processID))
		default:
			return utils.NewInternalServerError(err.Error())
		}

		return c.JSON(http.StatusAccepted, models.AsyncScrapeResponse{
			ProcessID: processID,
			Status:    models.AsyncStatusProcessing,
			Message:   "Cancellation requested",
			Timestamp: time.Now(),
		})
	}
}

func taskStatusResponse(result *background.TaskResult) models.AsyncTaskStatusResponse {
	resp := models.AsyncTaskStatusResponse{
		ProcessID:      result.ProcessID,
		Status:         models.AsyncStatus(result.Status),
		Error:          result.Error,
		CreatedAt:      result.CreatedAt,
		CompletedAt:    result.CompletedAt,
		ProcessingTime: result.ProcessingTime,
		Metadata:       result.Metadata,
	}
	if result.Data != nil {
		resp.Data = result.Data
	}
	return resp
}

func errorJSON(c echo.Context, code int, errCode, message string) error {
	return c.JSON(code, models.ErrorResponse{
		Error:     errCode,
		Message:   message,
		RequestID: middleware.RequestID(c),
		Timestamp: time.Now(),
	})
}
