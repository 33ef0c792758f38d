// Package apierr renders API error bodies.
//
// Two shapes are used: {"detail": "..."} for request-level failures and
// {"<field>": ["..."], "non_field_errors": ["..."]} for validation failures.
package apierr

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// NonFieldErrors is the key for errors that are not tied to a single field
const NonFieldErrors = "non_field_errors"

// Common detail messages
const (
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgTokenNotValid    = "Given token not valid for any token type"
	MsgRefreshNotValid  = "Token is invalid or expired"
	MsgNoActiveAccount  = "No active account found with the given credentials"
	MsgPermissionDenied = "You do not have permission to perform this action."
	MsgParseError       = "JSON parse error"
	MsgServerError      = "A server error occurred."
	MsgUserNotFound     = "User not found"
	MsgUserInactive     = "User is inactive"
)

// Codes accompanying 401 bodies
const (
	CodeTokenNotValid = "token_not_valid"
	CodeUserNotFound  = "user_not_found"
	CodeUserInactive  = "user_inactive"
)

// FieldErrors maps field names to their messages
type FieldErrors map[string][]string

// Add appends a message to a field
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Detail writes a {"detail": message} body
func Detail(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"detail": message})
}

// Unauthorized writes a 401 with a machine-readable code
func Unauthorized(c echo.Context, message, code string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"detail": message,
		"code":   code,
	})
}

// TokenNotValid writes a 401 for a rejected token
func TokenNotValid(c echo.Context, message string) error {
	return Unauthorized(c, message, CodeTokenNotValid)
}

// NotAuthenticated writes a 401 for a request without credentials
func NotAuthenticated(c echo.Context) error {
	return Detail(c, http.StatusUnauthorized, MsgNotAuthenticated)
}

// Forbidden writes a 403
func Forbidden(c echo.Context) error {
	return Detail(c, http.StatusForbidden, MsgPermissionDenied)
}

// NotFound writes a 404 naming the model that was looked up
func NotFound(c echo.Context, modelName string) error {
	return Detail(c, http.StatusNotFound, fmt.Sprintf("No %s matches the given query.", modelName))
}

// Internal writes a 500 without leaking the cause
func Internal(c echo.Context) error {
	return Detail(c, http.StatusInternalServerError, MsgServerError)
}

// Invalid writes a 400 with field errors
func Invalid(c echo.Context, errs FieldErrors) error {
	return c.JSON(http.StatusBadRequest, errs)
}

// InvalidField writes a 400 for a single field
func InvalidField(c echo.Context, field, message string) error {
	return Invalid(c, FieldErrors{field: {message}})
}

// NonField writes a 400 for an object-level rule
func NonField(c echo.Context, message string) error {
	return InvalidField(c, NonFieldErrors, message)
}
