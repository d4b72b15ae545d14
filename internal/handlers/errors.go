package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/dto"
	"github.com/SscSPs/therapy_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// errorResponder converts service errors into HTTP responses. Internal detail
// is only exposed in local mode.
type errorResponder struct {
	exposeDetail bool
}

func (e errorResponder) respond(c *gin.Context, err error) {
	status, message := classify(err)
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Request rejected", slog.Int("status", status), slog.String("reason", apperrors.Reason(err)))
	}

	body := dto.ErrorResponse{Message: message}
	if e.exposeDetail {
		body.Detail = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, string) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code != 0:
		return appErr.Code, appErr.Message
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrDuplicateEmail):
		return http.StatusConflict, apperrors.ErrDuplicateEmail.Error()
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, apperrors.MsgInvalidCredentials
	case apperrors.IsSessionError(err), errors.Is(err, apperrors.ErrUnknownUser):
		return http.StatusUnauthorized, apperrors.MsgSessionInvalid
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, apperrors.MsgForbidden
	default:
		return http.StatusInternalServerError, apperrors.MsgInternal
	}
}
