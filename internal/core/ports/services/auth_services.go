package services

import (
	"context"

	"github.com/SscSPs/therapy_app/internal/core/domain"
)

// TokenCodec signs and verifies the two token kinds. Implementations are pure: no I/O.
type TokenCodec interface {
	// IssueAccess signs a short-lived access token carrying subject and role.
	IssueAccess(subjectID string, role domain.Role) (string, error)

	// IssueRefresh signs a long-lived refresh token carrying the subject only.
	IssueRefresh(subjectID string) (string, error)

	// IssuePair mints an access and a refresh token for the same subject.
	IssuePair(subjectID string, role domain.Role) (domain.TokenPair, error)

	// VerifyAccess returns the identity embedded in a valid access token.
	// Fails with apperrors.ErrInvalidToken or apperrors.ErrExpiredToken.
	VerifyAccess(token string) (domain.Identity, error)

	// VerifyRefresh returns the claims embedded in a valid refresh token.
	// Fails with apperrors.ErrInvalidToken or apperrors.ErrExpiredToken.
	VerifyRefresh(token string) (domain.RefreshClaims, error)
}

// RegisterInput is the service-level registration request.
type RegisterInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
	Role     string
	// Consent must be explicitly true; nil and false are both rejected.
	Consent *bool `validate:"required"`
}

// SessionIssuerSvc creates new sessions.
type SessionIssuerSvc interface {
	// Register creates an account and opens its first session.
	Register(ctx context.Context, in RegisterInput) (*domain.SessionResult, error)

	// Login opens a new session, superseding any previous refresh credential.
	Login(ctx context.Context, email, password string) (*domain.SessionResult, error)
}

// SessionRotatorSvc rotates and terminates sessions.
type SessionRotatorSvc interface {
	// Refresh exchanges a refresh token for a brand-new pair. A refresh token is single-use.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)

	// Logout clears the stored credential when the token identifies a user. It never fails.
	Logout(ctx context.Context, refreshToken string)
}

// IdentitySvc resolves verified identities to accounts.
type IdentitySvc interface {
	// WhoAmI returns the redacted account of subjectID.
	WhoAmI(ctx context.Context, subjectID string) (*domain.PublicUser, error)
}

// SessionSvcFacade combines all session-related service interfaces.
type SessionSvcFacade interface {
	SessionIssuerSvc
	SessionRotatorSvc
	IdentitySvc
}
