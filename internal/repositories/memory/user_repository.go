// Package memory provides a process-local Credential Store for local
// development and tests. State is lost on restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/SscSPs/therapy_app/internal/utils"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // normalized email -> user ID
}

// NewUserRepository returns an empty in-memory store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

var _ portsrepo.UserRepositoryFacade = (*UserRepository)(nil)

func (r *UserRepository) SaveUser(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := utils.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[key]; taken {
		return apperrors.ErrDuplicateEmail
	}
	if _, taken := r.byID[user.UserID]; taken {
		return fmt.Errorf("user %s already exists", user.UserID)
	}
	r.byID[user.UserID] = cloneUser(user)
	r.byEmail[key] = user.UserID
	return nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[userID]
	if !ok || user.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	id, ok := r.byEmail[utils.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.FindUserByID(ctx, id)
}

func (r *UserRepository) SetRefreshCredential(ctx context.Context, userID string, refreshToken string) error {
	hash := utils.HashRefreshToken(refreshToken)
	return r.update(ctx, userID, func(u *domain.User) { u.RefreshCredentialHash = &hash })
}

func (r *UserRepository) ClearRefreshCredential(ctx context.Context, userID string) error {
	return r.update(ctx, userID, func(u *domain.User) { u.RefreshCredentialHash = nil })
}

func (r *UserRepository) VerifyRefreshCredential(ctx context.Context, userID string, presented string) (bool, error) {
	user, err := r.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return utils.CompareRefreshTokenHash(presented, user.RefreshCredentialHash), nil
}

func (r *UserRepository) ReplaceRefreshCredential(ctx context.Context, userID string, presented string, next string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok || user.DeletedAt != nil || !utils.CompareRefreshTokenHash(presented, user.RefreshCredentialHash) {
		return false, nil
	}
	hash := utils.HashRefreshToken(next)
	user.RefreshCredentialHash = &hash
	user.UpdatedAt = time.Now().UTC()
	r.byID[userID] = user
	return true, nil
}

func (r *UserRepository) update(ctx context.Context, userID string, mutate func(*domain.User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok || user.DeletedAt != nil {
		return fmt.Errorf("user not found or already deleted: %w", apperrors.ErrNotFound)
	}
	mutate(&user)
	user.UpdatedAt = time.Now().UTC()
	r.byID[userID] = user
	return nil
}

// cloneUser detaches pointer fields so callers cannot mutate stored state.
func cloneUser(u domain.User) domain.User {
	if u.RefreshCredentialHash != nil {
		h := *u.RefreshCredentialHash
		u.RefreshCredentialHash = &h
	}
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		u.DeletedAt = &t
	}
	return u
}
