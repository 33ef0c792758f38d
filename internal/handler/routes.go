package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/internal/middleware"
	"github.com/suteetoe/tradenet/internal/validation"
	"github.com/suteetoe/tradenet/prometheus"
)

// Register installs the request validator, the error handler and every route on e
func Register(e *echo.Echo) {
	e.Validator = validation.New()
	e.HTTPErrorHandler = HTTPErrorHandler

	// Public routes - no authentication required
	e.GET("/", Hello)
	e.GET("/health", HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	auth := middleware.AuthMiddleware
	employee := middleware.RequireActiveEmployee
	staff := middleware.RequireStaff

	participants := e.Group("/participants")
	participants.POST("/create/", CreateParticipant)
	participants.GET("/", ListParticipants, auth, employee)
	participants.GET("/view/:id/", GetParticipant, auth, employee)
	participants.PUT("/update/:id/", UpdateParticipant, auth, employee)
	participants.PATCH("/update/:id/", UpdateParticipant, auth, employee)
	participants.DELETE("/delete/:id/", DeleteParticipant, auth, staff)
	participants.POST("/clear-debt/", ClearDebt, auth, staff)

	products := e.Group("/products")
	products.POST("/create/", CreateProduct, auth, employee)
	products.GET("/", ListProducts, auth, employee)
	products.GET("/view/:id/", GetProduct, auth, employee)
	products.PUT("/update/:id/", UpdateProduct, auth)
	products.PATCH("/update/:id/", UpdateProduct, auth)
	products.DELETE("/delete/:id/", DeleteProduct, auth)

	users := e.Group("/users")
	users.POST("/login/", Login)
	users.POST("/token/refresh/", RefreshToken)
	users.POST("/create/", CreateUser)
	users.GET("/", ListUsers, auth, staff)
	users.PUT("/update/:id/", UpdateUser, auth, staff)
	users.PATCH("/update/:id/", UpdateUser, auth, staff)
	users.DELETE("/delete/:id/", DeleteUser, auth, staff)
}
