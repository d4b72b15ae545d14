package middleware

import (
	"context"

	"github.com/SscSPs/therapy_app/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// WithIdentity returns a copy of ctx carrying the verified identity.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// GetIdentityFromContext retrieves the identity stored by AuthGate.
// It returns false when the request never passed the gate.
func GetIdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	identity, ok := c.Request.Context().Value(identityCtxKey).(domain.Identity)
	if !ok || identity.SubjectID == "" {
		return domain.Identity{}, false
	}
	return identity, true
}
