package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/internal/apierr"
	"github.com/suteetoe/tradenet/internal/model"
	"github.com/suteetoe/tradenet/pkg/database"
	"github.com/suteetoe/tradenet/pkg/jwtutil"
	"github.com/suteetoe/tradenet/pkg/logger"
	"github.com/suteetoe/tradenet/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const userKey = "user"

// AuthMiddleware validates the access token from the Authorization header
// and loads the user it was issued to
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		parts := strings.Fields(authHeader)
		if len(parts) == 0 || !strings.EqualFold(parts[0], "bearer") {
			log.Warn("Missing bearer credentials")
			prometheus.RecordAuthError("missing_token")
			return apierr.NotAuthenticated(c)
		}
		if len(parts) != 2 {
			log.Warn("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return apierr.TokenNotValid(c, apierr.MsgTokenNotValid)
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1], jwtutil.AccessToken)
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return apierr.TokenNotValid(c, apierr.MsgTokenNotValid)
		}

		var user model.User
		if err := database.WithContext(c.Request().Context()).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warn("Token issued to a missing user", zap.Uint("user_id", claims.UserID))
				prometheus.RecordAuthError("user_not_found")
				return apierr.Unauthorized(c, apierr.MsgUserNotFound, apierr.CodeUserNotFound)
			}
			log.Error("Failed to load user", zap.Error(err))
			return apierr.Internal(c)
		}
		if !user.IsActive {
			prometheus.RecordAuthError("user_inactive")
			return apierr.Unauthorized(c, apierr.MsgUserInactive, apierr.CodeUserInactive)
		}

		// Store user info in context for later use
		c.Set(userKey, &user)
		logger.SetLogger(c, log.With(zap.Uint("user_id", user.ID), zap.String("email", user.Email)))

		return next(c)
	}
}

// CurrentUser returns the authenticated user, nil on public routes
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(userKey).(*model.User)
	return user
}

// RequireActiveEmployee lets through users employed by some participant
func RequireActiveEmployee(next echo.HandlerFunc) echo.HandlerFunc {
	return gate(next, func(u *model.User) bool { return u.IsActiveEmployee() })
}

// RequireStaff lets through staff users
func RequireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return gate(next, func(u *model.User) bool { return u.IsStaff })
}

func gate(next echo.HandlerFunc, allowed func(*model.User) bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return apierr.NotAuthenticated(c)
		}
		if !allowed(user) {
			logger.FromContext(c).Warn("Permission denied", zap.String("path", c.Path()))
			prometheus.RecordAuthError("forbidden")
			return apierr.Forbidden(c)
		}
		return next(c)
	}
}
