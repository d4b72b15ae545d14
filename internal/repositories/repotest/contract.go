// Package repotest holds the behavioural contract every Credential Store
// adapter must satisfy. Adapter packages run it from their own tests.
package repotest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for a single subtest.
type Factory func(t *testing.T) portsrepo.UserRepositoryFacade

// NewUser builds a valid account with a unique ID and the given email.
func NewUser(email string) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{
		UserID:         uuid.NewString(),
		Email:          email,
		PasswordHash:   "$2a$10$notarealhashbutlongenoughforthetests.........",
		Role:           domain.RolePatient,
		ConsentGivenAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// RunUserRepositoryContract exercises the full UserRepositoryFacade contract.
func RunUserRepositoryContract(t *testing.T, newRepo Factory) {
	t.Run("save and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser("alice@example.com")
		user.Role = domain.RoleTherapist
		require.NoError(t, repo.SaveUser(ctx, user))

		byID, err := repo.FindUserByID(ctx, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
		assert.Equal(t, domain.RoleTherapist, byID.Role)
		assert.Equal(t, user.PasswordHash, byID.PasswordHash)
		assert.False(t, byID.HasActiveSession())

		byEmail, err := repo.FindUserByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.UserID, byEmail.UserID)
	})

	t.Run("misses are ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.FindUserByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = repo.FindUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("duplicate email is rejected case-insensitively", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.SaveUser(ctx, NewUser("bob@example.com")))

		err := repo.SaveUser(ctx, NewUser("Bob@Example.com"))
		assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
	})

	t.Run("concurrent duplicate registration admits exactly one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		var saved, dup atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.SaveUser(ctx, NewUser("race@example.com"))
				switch {
				case err == nil:
					saved.Add(1)
				case assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail):
					dup.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), saved.Load())
		assert.Equal(t, int32(7), dup.Load())
	})

	t.Run("set verify clear", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser("carol@example.com")
		require.NoError(t, repo.SaveUser(ctx, user))

		ok, err := repo.VerifyRefreshCredential(ctx, user.UserID, "r1")
		require.NoError(t, err)
		assert.False(t, ok, "nothing stored yet")

		require.NoError(t, repo.SetRefreshCredential(ctx, user.UserID, "r1"))
		ok, err = repo.VerifyRefreshCredential(ctx, user.UserID, "r1")
		require.NoError(t, err)
		assert.True(t, ok)

		stored, err := repo.FindUserByID(ctx, user.UserID)
		require.NoError(t, err)
		require.True(t, stored.HasActiveSession())
		assert.NotEqual(t, "r1", *stored.RefreshCredentialHash, "only the hash is stored")

		require.NoError(t, repo.SetRefreshCredential(ctx, user.UserID, "r2"))
		ok, _ = repo.VerifyRefreshCredential(ctx, user.UserID, "r1")
		assert.False(t, ok, "set overwrites the previous credential")

		require.NoError(t, repo.ClearRefreshCredential(ctx, user.UserID))
		ok, err = repo.VerifyRefreshCredential(ctx, user.UserID, "r2")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.VerifyRefreshCredential(ctx, uuid.NewString(), "r2")
		require.NoError(t, err)
		assert.False(t, ok, "unknown user verifies false")
	})

	t.Run("replace is compare-and-swap", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser("dave@example.com")
		require.NoError(t, repo.SaveUser(ctx, user))
		require.NoError(t, repo.SetRefreshCredential(ctx, user.UserID, "r1"))

		swapped, err := repo.ReplaceRefreshCredential(ctx, user.UserID, "r1", "r2")
		require.NoError(t, err)
		assert.True(t, swapped)

		swapped, err = repo.ReplaceRefreshCredential(ctx, user.UserID, "r1", "r3")
		require.NoError(t, err)
		assert.False(t, swapped, "a consumed credential cannot be rotated again")

		ok, _ := repo.VerifyRefreshCredential(ctx, user.UserID, "r2")
		assert.True(t, ok)

		require.NoError(t, repo.ClearRefreshCredential(ctx, user.UserID))
		swapped, err = repo.ReplaceRefreshCredential(ctx, user.UserID, "r2", "r4")
		require.NoError(t, err)
		assert.False(t, swapped, "cleared credential cannot be rotated")
	})

	t.Run("concurrent replace admits exactly one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := NewUser("erin@example.com")
		require.NoError(t, repo.SaveUser(ctx, user))
		require.NoError(t, repo.SetRefreshCredential(ctx, user.UserID, "r1"))

		var wg sync.WaitGroup
		var wins atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				swapped, err := repo.ReplaceRefreshCredential(ctx, user.UserID, "r1", uuid.NewString())
				if assert.NoError(t, err) && swapped {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}
