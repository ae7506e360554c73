package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TimeoutConfig bounds every request to timeout. Harvest runs are accepted
// and executed in the background, so no endpoint needs a longer budget.
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout:      timeout,
		ErrorMessage: http.StatusText(http.StatusServiceUnavailable),
	})
}
