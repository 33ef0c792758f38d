package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey int

const (
	// loggerKey is the key used to store the logger in the context
	loggerKey contextKey = iota
)

// echoKey is where request-scoped loggers live in the echo context
const echoKey = "logger"

// WithLogger returns a copy of the context with the logger included
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// SetLogger stores a request-scoped logger in both the echo and the Go context
func SetLogger(c echo.Context, logger *zap.Logger) {
	c.Set(echoKey, logger)
	c.SetRequest(c.Request().WithContext(WithLogger(c.Request().Context(), logger)))
}

// FromContext retrieves the logger from the context
func FromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(echoKey).(*zap.Logger); ok {
		return l
	}

	if l, ok := c.Request().Context().Value(loggerKey).(*zap.Logger); ok {
		return l
	}

	return GetLogger()
}

// FromGoContext retrieves the logger from a plain context.Context
func FromGoContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}
