package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"smepay_gateway/internal/telemetry"
)

// JSONErrorHandler renders every uncaught error as a JSON envelope. Checkout
// paths recover their own failures; anything reaching here is a request-level
// problem, never a provider one.
func JSONErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		}
	}

	if telemetry.Logger != nil {
		telemetry.Logger.Error("HTTP error",
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	if c.Response().Committed {
		return
	}
	_ = c.JSON(code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
