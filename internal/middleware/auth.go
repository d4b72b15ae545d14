package middleware

import (
	"log/slog"
	"strings"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	portssvc "github.com/SscSPs/therapy_app/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// AuthGate validates the bearer access token and attaches the verified identity
// to the request context. Every failure is answered with the same 401 body.
func AuthGate(codec portssvc.TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			logger.Info("Access rejected", slog.String("reason", apperrors.Reason(err)))
			abortUnauthorized(c)
			return
		}

		identity, err := codec.VerifyAccess(token)
		if err != nil {
			logger.Info("Access rejected", slog.String("reason", apperrors.Reason(err)))
			abortUnauthorized(c)
			return
		}

		enrichedLogger := logger.With(
			slog.String("user_id", identity.SubjectID),
			slog.String("role", string(identity.Role)),
		)
		ctx := WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(WithLogger(ctx, enrichedLogger))

		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>"; the scheme is case-insensitive.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.ErrMissingToken
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", apperrors.ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.ErrMissingToken
	}
	return token, nil
}
