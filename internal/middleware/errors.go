package middleware

import (
	"net/http"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/gin-gonic/gin"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.NewUnauthorizedError(apperrors.MsgSessionInvalid))
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, apperrors.NewAppError(http.StatusForbidden, apperrors.MsgForbidden, apperrors.ErrForbidden))
}
