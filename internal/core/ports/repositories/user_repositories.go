package repositories

import (
	"context"

	"github.com/SscSPs/therapy_app/internal/core/domain"
)

// UserReader defines read operations for user data.
type UserReader interface {
	// FindUserByID retrieves a user by ID. Returns apperrors.ErrNotFound on a miss.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by email (case-insensitive).
	// Returns apperrors.ErrNotFound on a miss.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// UserWriter defines write operations for user data.
type UserWriter interface {
	// SaveUser persists a new user. Returns apperrors.ErrDuplicateEmail when the
	// storage-level unique constraint on email rejects the insert.
	SaveUser(ctx context.Context, user domain.User) error
}

// RefreshCredentialManager owns the single rotating refresh-credential hash of a user.
// Implementations receive raw tokens and store only their hash.
type RefreshCredentialManager interface {
	// SetRefreshCredential overwrites any prior credential.
	SetRefreshCredential(ctx context.Context, userID string, refreshToken string) error

	// ClearRefreshCredential sets the stored hash to null.
	ClearRefreshCredential(ctx context.Context, userID string) error

	// VerifyRefreshCredential reports whether presented matches the stored hash.
	// It returns false, not an error, when nothing is stored or the user is gone.
	VerifyRefreshCredential(ctx context.Context, userID string, presented string) (bool, error)

	// ReplaceRefreshCredential atomically swaps the stored hash to hash(next) only if it
	// currently equals hash(presented). It reports whether the swap happened.
	ReplaceRefreshCredential(ctx context.Context, userID string, presented string, next string) (bool, error)
}

// UserRepositoryFacade combines all user-related repository interfaces.
// It is the Credential Store port.
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	RefreshCredentialManager
}
