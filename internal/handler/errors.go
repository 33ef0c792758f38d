package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/internal/apierr"
	"github.com/suteetoe/tradenet/pkg/logger"
	"go.uber.org/zap"
)

// HTTPErrorHandler renders errors that reach echo in the {"detail": ...} shape
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    = http.StatusInternalServerError
		message = apierr.MsgServerError
	)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		switch code {
		case http.StatusNotFound:
			message = "Not found."
		case http.StatusMethodNotAllowed:
			message = fmt.Sprintf("Method \"%s\" not allowed.", c.Request().Method)
		default:
			message = fmt.Sprint(httpErr.Message)
		}
	}

	if code >= http.StatusInternalServerError {
		logger.FromContext(c).Error("Unhandled error", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = apierr.Detail(c, code, message)
	}
	if err != nil {
		logger.FromContext(c).Error("Failed to write error response", zap.Error(err))
	}
}
