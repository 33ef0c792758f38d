package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/pkg/database"
	"github.com/suteetoe/tradenet/pkg/logger"
	"go.uber.org/zap"
)

var errDatabaseNotInitialized = errors.New("database not initialized")

// Hello answers on the root path
func Hello(c echo.Context) error {
	log := logger.FromContext(c)
	log.Debug("Hello from tradenet")
	return c.JSON(http.StatusOK, echo.Map{"message": "hello from tradenet"})
}

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	status := "healthy"
	code := http.StatusOK

	var err error
	if db := database.GetDB(); db == nil {
		err = errDatabaseNotInitialized
	} else if sqlDB, dbErr := db.DB(); dbErr != nil {
		err = dbErr
	} else {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		logger.FromContext(c).Error("Database ping failed", zap.Error(err))
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, echo.Map{
		"status":  status,
		"service": "tradenet",
	})
}
