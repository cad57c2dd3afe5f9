package handler

import (
	"errors"
	"fmt"
	"net/http"

	"token-vending-service/internal/dto"
	"token-vending-service/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler writes every error as {success:false, message}.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)

		var svcErr *service.ServiceError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &svcErr):
			status, message = svcErr.StatusCode, svcErr.Message
		case errors.As(err, &httpErr):
			status = httpErr.Code
			message = fmt.Sprint(httpErr.Message)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, dto.ErrorResponse{Success: false, Message: message})
		}
		if err != nil {
			logger.Error("write error response", zap.Error(err))
		}
	}
}
