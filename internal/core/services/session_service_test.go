package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portssvc "github.com/SscSPs/therapy_app/internal/core/ports/services"
	"github.com/SscSPs/therapy_app/internal/core/services"
	"github.com/SscSPs/therapy_app/internal/repositories/memory"
	"github.com/SscSPs/therapy_app/internal/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func boolPtr(b bool) *bool { return &b }

func registerInput(email, password, role string) portssvc.RegisterInput {
	return portssvc.RegisterInput{Email: email, Password: password, Role: role, Consent: boolPtr(true)}
}

// --- Behaviour against a real in-memory store ---

type SessionServiceTestSuite struct {
	suite.Suite
	clock    *fakeClock
	repo     *memory.UserRepository
	codec    portssvc.TokenCodec
	observer *recordingObserver
	service  portssvc.SessionSvcFacade
	ctx      context.Context
}

func (s *SessionServiceTestSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec, err := services.NewTokenService(testTokenConfig(), services.WithClock(s.clock.Now))
	s.Require().NoError(err)
	s.codec = codec
	s.repo = memory.NewUserRepository()
	s.observer = &recordingObserver{}
	s.service = services.NewSessionService(s.repo, codec,
		services.WithAuthObserver(s.observer),
		services.WithSessionClock(s.clock.Now))
	s.ctx = context.Background()
}

func TestSessionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceTestSuite))
}

func (s *SessionServiceTestSuite) TestRegister_Success() {
	res, err := s.service.Register(s.ctx, registerInput("  Alice@Test.com ", "password123", "patient"))
	s.Require().NoError(err)

	s.Equal("alice@test.com", res.User.Email)
	s.Equal(domain.RolePatient, res.User.Role)
	s.False(res.User.QuestionnaireDone)
	s.NotEmpty(res.User.UserID)

	identity, err := s.codec.VerifyAccess(res.Tokens.AccessToken)
	s.Require().NoError(err)
	s.Equal(res.User.UserID, identity.SubjectID)
	s.Equal(domain.RolePatient, identity.Role)

	stored, err := s.repo.FindUserByID(s.ctx, res.User.UserID)
	s.Require().NoError(err)
	s.True(stored.HasActiveSession())
	s.True(stored.ConsentGivenAt.Equal(s.clock.Now()))
	s.True(utils.CheckPasswordHash("password123", stored.PasswordHash))

	ok, err := s.repo.VerifyRefreshCredential(s.ctx, res.User.UserID, res.Tokens.RefreshToken)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal([]string{"register:ok"}, s.observer.outcomes)
}

func (s *SessionServiceTestSuite) TestRegister_RoleNormalization() {
	res, err := s.service.Register(s.ctx, registerInput("t@test.com", "password123", "therapist"))
	s.Require().NoError(err)
	s.Equal(domain.RoleTherapist, res.User.Role)

	res, err = s.service.Register(s.ctx, registerInput("x@test.com", "password123", "admin"))
	s.Require().NoError(err)
	s.Equal(domain.RolePatient, res.User.Role)

	res, err = s.service.Register(s.ctx, registerInput("y@test.com", "password123", ""))
	s.Require().NoError(err)
	s.Equal(domain.RolePatient, res.User.Role)
}

func (s *SessionServiceTestSuite) TestRegister_Validation() {
	tests := []struct {
		name  string
		input portssvc.RegisterInput
	}{
		{"malformed email", registerInput("not-an-email", "password123", "patient")},
		{"empty email", registerInput("", "password123", "patient")},
		{"short password", registerInput("a@test.com", "short", "patient")},
		{"consent false", portssvc.RegisterInput{Email: "a@test.com", Password: "password123", Consent: boolPtr(false)}},
		{"consent missing", portssvc.RegisterInput{Email: "a@test.com", Password: "password123"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			res, err := s.service.Register(s.ctx, tt.input)
			s.Nil(res)
			s.ErrorIs(err, apperrors.ErrValidation)
		})
	}
	_, err := s.repo.FindUserByEmail(s.ctx, "a@test.com")
	s.ErrorIs(err, apperrors.ErrNotFound, "nothing is persisted on validation failure")
}

func (s *SessionServiceTestSuite) TestRegister_DuplicateEmail() {
	_, err := s.service.Register(s.ctx, registerInput("dup@test.com", "password123", "patient"))
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, registerInput("DUP@test.com", "password456", "therapist"))
	s.ErrorIs(err, apperrors.ErrDuplicateEmail)
}

func (s *SessionServiceTestSuite) TestLogin_EnumerationSafety() {
	_, err := s.service.Register(s.ctx, registerInput("bob@test.com", "password123", "patient"))
	s.Require().NoError(err)

	_, wrongPassword := s.service.Login(s.ctx, "bob@test.com", "wrong-password")
	_, unknownEmail := s.service.Login(s.ctx, "nobody@test.com", "password123")

	s.ErrorIs(wrongPassword, apperrors.ErrInvalidCredentials)
	s.ErrorIs(unknownEmail, apperrors.ErrInvalidCredentials)
	s.Equal(wrongPassword.Error(), unknownEmail.Error())
}

func (s *SessionServiceTestSuite) TestLogin_MissingFields() {
	_, err := s.service.Login(s.ctx, "", "password123")
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.service.Login(s.ctx, "bob@test.com", "")
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *SessionServiceTestSuite) TestLogin_SupersedesPreviousSession() {
	reg, err := s.service.Register(s.ctx, registerInput("carol@test.com", "password123", "patient"))
	s.Require().NoError(err)

	login, err := s.service.Login(s.ctx, "Carol@Test.com", "password123")
	s.Require().NoError(err)
	s.Equal(reg.User, login.User)

	_, err = s.service.Refresh(s.ctx, reg.Tokens.RefreshToken)
	s.ErrorIs(err, apperrors.ErrStaleCredential, "registration refresh token is no longer the active one")

	_, err = s.service.Refresh(s.ctx, login.Tokens.RefreshToken)
	s.NoError(err)
}

func (s *SessionServiceTestSuite) TestRefresh_SingleUse() {
	reg, err := s.service.Register(s.ctx, registerInput("dave@test.com", "password123", "therapist"))
	s.Require().NoError(err)

	next, err := s.service.Refresh(s.ctx, reg.Tokens.RefreshToken)
	s.Require().NoError(err)
	s.NotEqual(reg.Tokens.RefreshToken, next.RefreshToken)

	identity, err := s.codec.VerifyAccess(next.AccessToken)
	s.Require().NoError(err)
	s.Equal(domain.RoleTherapist, identity.Role)

	_, err = s.service.Refresh(s.ctx, reg.Tokens.RefreshToken)
	s.ErrorIs(err, apperrors.ErrStaleCredential)

	_, err = s.service.Refresh(s.ctx, next.RefreshToken)
	s.NoError(err)
}

func (s *SessionServiceTestSuite) TestRefresh_ErrorClassification() {
	reg, err := s.service.Register(s.ctx, registerInput("erin@test.com", "password123", "patient"))
	s.Require().NoError(err)

	_, err = s.service.Refresh(s.ctx, "")
	s.ErrorIs(err, apperrors.ErrMissingToken)

	_, err = s.service.Refresh(s.ctx, "garbage")
	s.ErrorIs(err, apperrors.ErrInvalidToken)

	_, err = s.service.Refresh(s.ctx, reg.Tokens.AccessToken)
	s.ErrorIs(err, apperrors.ErrInvalidToken, "access token is not a refresh token")

	ghost, err := s.codec.IssueRefresh("no-such-user")
	s.Require().NoError(err)
	_, err = s.service.Refresh(s.ctx, ghost)
	s.ErrorIs(err, apperrors.ErrUnknownUser)

	s.clock.Advance(7*24*time.Hour + time.Second)
	_, err = s.service.Refresh(s.ctx, reg.Tokens.RefreshToken)
	s.ErrorIs(err, apperrors.ErrExpiredToken)
	s.False(errors.Is(err, apperrors.ErrInvalidToken))
}

func (s *SessionServiceTestSuite) TestRefresh_ConcurrentReplayHasOneWinner() {
	reg, err := s.service.Register(s.ctx, registerInput("frank@test.com", "password123", "patient"))
	s.Require().NoError(err)

	const attempts = 16
	var wg sync.WaitGroup
	var wins, stale atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Refresh(context.Background(), reg.Tokens.RefreshToken)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, apperrors.ErrStaleCredential):
				stale.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(attempts-1), stale.Load())
}

func (s *SessionServiceTestSuite) TestLogout_Idempotent() {
	reg, err := s.service.Register(s.ctx, registerInput("gina@test.com", "password123", "patient"))
	s.Require().NoError(err)

	s.service.Logout(s.ctx, reg.Tokens.RefreshToken)
	s.service.Logout(s.ctx, reg.Tokens.RefreshToken)
	s.service.Logout(s.ctx, "")
	s.service.Logout(s.ctx, "malformed")

	stored, err := s.repo.FindUserByID(s.ctx, reg.User.UserID)
	s.Require().NoError(err)
	s.False(stored.HasActiveSession())

	_, err = s.service.Refresh(s.ctx, reg.Tokens.RefreshToken)
	s.ErrorIs(err, apperrors.ErrStaleCredential)
}

func (s *SessionServiceTestSuite) TestWhoAmI() {
	reg, err := s.service.Register(s.ctx, registerInput("hank@test.com", "password123", "therapist"))
	s.Require().NoError(err)

	me, err := s.service.WhoAmI(s.ctx, reg.User.UserID)
	s.Require().NoError(err)
	s.Equal(reg.User, *me)

	_, err = s.service.WhoAmI(s.ctx, "missing")
	s.ErrorIs(err, apperrors.ErrUnknownUser)
}

// --- Error paths against a mocked store ---

type SessionServiceMockTestSuite struct {
	suite.Suite
	repo    *MockUserRepository
	codec   portssvc.TokenCodec
	service portssvc.SessionSvcFacade
	ctx     context.Context
}

func (s *SessionServiceMockTestSuite) SetupTest() {
	codec, err := services.NewTokenService(testTokenConfig())
	s.Require().NoError(err)
	s.codec = codec
	s.repo = new(MockUserRepository)
	s.service = services.NewSessionService(s.repo, codec)
	s.ctx = context.Background()
}

func (s *SessionServiceMockTestSuite) TearDownTest() {
	s.repo.AssertExpectations(s.T())
}

func TestSessionServiceMockTestSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceMockTestSuite))
}

func (s *SessionServiceMockTestSuite) TestRegister_UniqueIndexWinsRace() {
	s.repo.On("FindUserByEmail", s.ctx, "race@test.com").Return(nil, apperrors.ErrNotFound).Once()
	s.repo.On("SaveUser", s.ctx, mock.AnythingOfType("domain.User")).Return(apperrors.ErrDuplicateEmail).Once()

	_, err := s.service.Register(s.ctx, registerInput("race@test.com", "password123", "patient"))
	s.ErrorIs(err, apperrors.ErrDuplicateEmail)
}

func (s *SessionServiceMockTestSuite) TestRegister_StoreFailure() {
	storeErr := errors.New("connection reset")
	s.repo.On("FindUserByEmail", s.ctx, "a@test.com").Return(nil, storeErr).Once()

	_, err := s.service.Register(s.ctx, registerInput("a@test.com", "password123", "patient"))
	s.ErrorIs(err, storeErr)
	s.False(errors.Is(err, apperrors.ErrDuplicateEmail))
}

func (s *SessionServiceMockTestSuite) TestLogin_UnknownEmailNeverTouchesCredentials() {
	s.repo.On("FindUserByEmail", s.ctx, "ghost@test.com").Return(nil, apperrors.ErrNotFound).Once()

	_, err := s.service.Login(s.ctx, "ghost@test.com", "password123")
	s.ErrorIs(err, apperrors.ErrInvalidCredentials)
	s.repo.AssertNotCalled(s.T(), "SetRefreshCredential", mock.Anything, mock.Anything, mock.Anything)
}

func (s *SessionServiceMockTestSuite) TestRefresh_LostRaceIsStale() {
	user := &domain.User{UserID: "u1", Role: domain.RolePatient}
	token, err := s.codec.IssueRefresh("u1")
	s.Require().NoError(err)

	s.repo.On("FindUserByID", s.ctx, "u1").Return(user, nil).Once()
	s.repo.On("VerifyRefreshCredential", s.ctx, "u1", token).Return(true, nil).Once()
	s.repo.On("ReplaceRefreshCredential", s.ctx, "u1", token, mock.AnythingOfType("string")).Return(false, nil).Once()

	pair, err := s.service.Refresh(s.ctx, token)
	s.Nil(pair)
	s.ErrorIs(err, apperrors.ErrStaleCredential)
}

func (s *SessionServiceMockTestSuite) TestRefresh_UsesStoredRole() {
	user := &domain.User{UserID: "u1", Role: domain.RoleTherapist}
	token, err := s.codec.IssueRefresh("u1")
	s.Require().NoError(err)

	s.repo.On("FindUserByID", s.ctx, "u1").Return(user, nil).Once()
	s.repo.On("VerifyRefreshCredential", s.ctx, "u1", token).Return(true, nil).Once()
	s.repo.On("ReplaceRefreshCredential", s.ctx, "u1", token, mock.AnythingOfType("string")).Return(true, nil).Once()

	pair, err := s.service.Refresh(s.ctx, token)
	s.Require().NoError(err)
	identity, err := s.codec.VerifyAccess(pair.AccessToken)
	s.Require().NoError(err)
	s.Equal(domain.RoleTherapist, identity.Role)
}

func (s *SessionServiceMockTestSuite) TestLogout_SwallowsStoreFailure() {
	token, err := s.codec.IssueRefresh("u1")
	s.Require().NoError(err)
	s.repo.On("ClearRefreshCredential", s.ctx, "u1").Return(errors.New("store down")).Once()

	s.NotPanics(func() { s.service.Logout(s.ctx, token) })
}

func (s *SessionServiceMockTestSuite) TestLogout_InvalidTokenSkipsStore() {
	s.service.Logout(s.ctx, "not-a-token")
	s.repo.AssertNotCalled(s.T(), "ClearRefreshCredential", mock.Anything, mock.Anything)
}
