package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/internal/apierr"
	"github.com/suteetoe/tradenet/internal/validation"
	"github.com/suteetoe/tradenet/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Model names used in 404 bodies
const (
	participantModel = "Participant"
	productModel     = "Product"
	userModel        = "User"
)

// bindError turns a BindAndValidate failure into a response
func bindError(c echo.Context, err error) error {
	log := logger.FromContext(c)

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		log.Warn("Request failed validation", zap.Error(err))
		return apierr.Invalid(c, apierr.FieldErrors(fieldErrs))
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code == http.StatusUnsupportedMediaType {
		return apierr.Detail(c, http.StatusUnsupportedMediaType,
			fmt.Sprintf("Unsupported media type \"%s\" in request.", c.Request().Header.Get(echo.HeaderContentType)))
	}

	if errors.Is(err, validation.ErrMalformed) {
		log.Warn("Malformed request body", zap.Error(err))
		return apierr.Detail(c, http.StatusBadRequest, apierr.MsgParseError)
	}

	log.Error("Request validation could not run", zap.Error(err))
	return apierr.Internal(c)
}

// collectFieldErrors starts a field error set from a validation result,
// passing through anything that is not a field error
func collectFieldErrors(err error) (apierr.FieldErrors, error) {
	errs := apierr.FieldErrors{}
	if err == nil {
		return errs, nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}
	for field, messages := range fieldErrs {
		errs[field] = append(errs[field], messages...)
	}
	return errs, nil
}

// pathID parses the :id path parameter
func pathID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// whereRef matches a nullable reference column, a nil reference matching NULL
func whereRef(db *gorm.DB, column string, ref *uint) *gorm.DB {
	if ref == nil {
		return db.Where(column + " IS NULL")
	}
	return db.Where(column+" = ?", *ref)
}

// invalidPK is the message for a reference to a missing row
func invalidPK(id uint) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
