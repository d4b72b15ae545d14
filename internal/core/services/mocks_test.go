package services_test

import (
	"context"
	"sync"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a testify mock of the Credential Store port.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SetRefreshCredential(ctx context.Context, userID string, refreshToken string) error {
	args := m.Called(ctx, userID, refreshToken)
	return args.Error(0)
}

func (m *MockUserRepository) ClearRefreshCredential(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) VerifyRefreshCredential(ctx context.Context, userID string, presented string) (bool, error) {
	args := m.Called(ctx, userID, presented)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ReplaceRefreshCredential(ctx context.Context, userID string, presented string, next string) (bool, error) {
	args := m.Called(ctx, userID, presented, next)
	return args.Bool(0), args.Error(1)
}

// recordingObserver collects operation outcomes.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveAuth(operation string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, operation+":"+apperrors.Reason(err))
}
