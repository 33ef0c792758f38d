package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/pkg/logger"
	"go.uber.org/zap"
)

// RequestIDKey is both the header name and the echo context key
const RequestIDKey = "X-Request-ID"

// RequestIDMiddleware adds a request ID to each request and a logger carrying it.
// An ID supplied by the client is kept.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request().Header.Set(RequestIDKey, requestID)
		}

		c.Response().Header().Set(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		logger.SetLogger(c, logger.GetLogger().With(zap.String("request_id", requestID)))

		return next(c)
	}
}
