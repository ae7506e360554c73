package handlers

import (
	"errors"
	"net/http"
	"strings"

	"jobharvest/internal/logging"
	"jobharvest/pkg/utils"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors returned by handlers and middleware as an
// ErrorResponse. *utils.CustomError and *echo.HTTPError keep their status code;
// anything else is a 500.
func ErrorHandler(logger logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal server error"

		var customErr *utils.CustomError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &customErr):
			code = customErr.Code
			message = customErr.Error()
		case errors.As(err, &httpErr):
			code = httpErr.Code
			if m, ok := httpErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		default:
			logger.Error("Unhandled request error", map[string]interface{}{
				"path":  c.Request().URL.Path,
				"error": err.Error(),
			})
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = errorJSON(c, code, errorCode(code), message)
		}
		if err != nil {
			logger.Error("Failed to write error response", map[string]interface{}{"error": err.Error()})
		}
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}
