package middleware

import (
	"log/slog"
	"slices"

	"github.com/SscSPs/therapy_app/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// RequireRoles admits requests whose identity carries one of roles. It must be
// mounted after AuthGate; without an identity it answers 401.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	allowed := slices.Clone(roles)
	return func(c *gin.Context) {
		identity, ok := GetIdentityFromContext(c)
		if !ok {
			GetLoggerFromCtx(c.Request.Context()).Warn("Role gate reached without identity")
			abortUnauthorized(c)
			return
		}
		if !slices.Contains(allowed, identity.Role) {
			GetLoggerFromCtx(c.Request.Context()).Info("Access forbidden",
				slog.String("role", string(identity.Role)),
				slog.Any("required", allowed))
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

// RequireRole is the single-role form of RequireRoles.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return RequireRoles(role)
}
