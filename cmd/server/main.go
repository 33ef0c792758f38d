package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/tradenet/internal/handler"
	"github.com/suteetoe/tradenet/internal/middleware"
	"github.com/suteetoe/tradenet/internal/model"
	"github.com/suteetoe/tradenet/pkg/config"
	"github.com/suteetoe/tradenet/pkg/database"
	"github.com/suteetoe/tradenet/pkg/jwtutil"
	"github.com/suteetoe/tradenet/pkg/logger"
	"github.com/suteetoe/tradenet/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting tradenet service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	log.Info("Database connection established")

	if err := database.MigrateModels(model.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database migrated")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware(cfg.Metrics.Prefix))

	handler.Register(e)

	// Start server
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
