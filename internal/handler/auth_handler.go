package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/internal/apierr"
	"github.com/suteetoe/tradenet/internal/model"
	"github.com/suteetoe/tradenet/internal/validation"
	"github.com/suteetoe/tradenet/pkg/database"
	"github.com/suteetoe/tradenet/pkg/jwtutil"
	"github.com/suteetoe/tradenet/pkg/logger"
	"github.com/suteetoe/tradenet/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginRequest carries email/password credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// Login exchanges credentials for a refresh/access token pair
func Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req LoginRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return bindError(c, err)
	}

	db := database.WithContext(c.Request().Context())

	// Find user in database - track DB operation duration
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !isNotFound(err) {
			log.Error("Failed to load user", zap.Error(err))
			return apierr.Internal(c)
		}
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("login_failure")
		return apierr.Detail(c, http.StatusUnauthorized, apierr.MsgNoActiveAccount)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil || !user.IsActive {
		log.Warn("Invalid credentials", zap.String("email", req.Email))
		prometheus.RecordAuthError("login_failure")
		return apierr.Detail(c, http.StatusUnauthorized, apierr.MsgNoActiveAccount)
	}

	pair, err := jwtutil.GeneratePair(user.Email, user.ID)
	if err != nil {
		log.Error("Failed to generate tokens", zap.Error(err))
		return apierr.Internal(c)
	}

	now := time.Now()
	if err := db.Model(&user).Update("last_login", now).Error; err != nil {
		log.Error("Failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordLogin()
	log.Info("User logged in", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, pair)
}

// RefreshToken issues a new access token from a refresh token
func RefreshToken(c echo.Context) error {
	log := logger.FromContext(c)

	var req RefreshRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return bindError(c, err)
	}

	claims, err := jwtutil.ValidateToken(req.Refresh, jwtutil.RefreshToken)
	if err != nil {
		log.Warn("Invalid refresh token", zap.Error(err))
		prometheus.RecordAuthError("invalid_token")
		return apierr.TokenNotValid(c, apierr.MsgRefreshNotValid)
	}

	access, err := jwtutil.GenerateAccess(claims)
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		return apierr.Internal(c)
	}

	log.Info("Access token refreshed", zap.Uint("user_id", claims.UserID))
	return c.JSON(http.StatusOK, echo.Map{"access": access})
}
