package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/therapy_app/internal/core/ports/services"
	"github.com/SscSPs/therapy_app/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

// AuthObserver receives the outcome of every session operation.
type AuthObserver interface {
	ObserveAuth(operation string, err error)
}

// SessionServiceOption customises a sessionService.
type SessionServiceOption func(*sessionService)

// WithAuthObserver reports operation outcomes to o.
func WithAuthObserver(o AuthObserver) SessionServiceOption {
	return func(s *sessionService) {
		s.observer = o
	}
}

// WithSessionClock replaces the time source used for account timestamps.
func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *sessionService) {
		s.now = now
	}
}

type sessionService struct {
	BaseService
	users    portsrepo.UserRepositoryFacade
	tokens   portssvc.TokenCodec
	validate *validator.Validate
	observer AuthObserver
	now      func() time.Time
}

// NewSessionService creates the service that owns the session lifecycle.
func NewSessionService(users portsrepo.UserRepositoryFacade, tokens portssvc.TokenCodec, opts ...SessionServiceOption) portssvc.SessionSvcFacade {
	s := &sessionService{
		users:    users,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.SessionSvcFacade = (*sessionService)(nil)

func (s *sessionService) observe(operation string, err error) {
	if s.observer != nil {
		s.observer.ObserveAuth(operation, err)
	}
}

// Register creates a patient or therapist account and opens its first session.
func (s *sessionService) Register(ctx context.Context, in portssvc.RegisterInput) (result *domain.SessionResult, err error) {
	defer func() { s.observe("register", err) }()

	in.Email = utils.NormalizeEmail(in.Email)
	if err := s.validateRegistration(ctx, in); err != nil {
		return nil, err
	}

	if _, err := s.users.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.ErrDuplicateEmail
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to check for existing account")
		return nil, fmt.Errorf("failed to check for existing account: %w", err)
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		UserID:         uuid.NewString(),
		Email:          in.Email,
		PasswordHash:   passwordHash,
		Role:           domain.NormalizeRole(in.Role),
		ConsentGivenAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The store's unique index is authoritative; the lookup above only saves a bcrypt round.
	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			return nil, apperrors.ErrDuplicateEmail
		}
		s.LogError(ctx, err, "Failed to save user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.openSession(ctx, &user)
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "User registered",
		slog.String("user_id", user.UserID),
		slog.String("email", utils.RedactEmail(user.Email)),
		slog.String("role", string(user.Role)))
	return &domain.SessionResult{Tokens: tokens, User: user.Public()}, nil
}

// Login verifies credentials and opens a new session, superseding any previous one.
func (s *sessionService) Login(ctx context.Context, email, password string) (result *domain.SessionResult, err error) {
	defer func() { s.observe("login", err) }()

	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Spend the same bcrypt cost as a real check.
			utils.BurnPasswordCheck(password)
			s.LogInfo(ctx, "Login rejected", slog.String("email", utils.RedactEmail(email)), slog.String("reason", "unknown_email"))
			return nil, apperrors.ErrInvalidCredentials
		}
		s.LogError(ctx, err, "Failed to look up account for login")
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		s.LogInfo(ctx, "Login rejected", slog.String("user_id", user.UserID), slog.String("reason", "wrong_password"))
		return nil, apperrors.ErrInvalidCredentials
	}

	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "User logged in", slog.String("user_id", user.UserID))
	return &domain.SessionResult{Tokens: tokens, User: user.Public()}, nil
}

// openSession mints a pair and overwrites the stored refresh credential.
func (s *sessionService) openSession(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	tokens, err := s.tokens.IssuePair(user.UserID, user.Role)
	if err != nil {
		s.LogError(ctx, err, "Failed to issue tokens", slog.String("user_id", user.UserID))
		return domain.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	if err := s.users.SetRefreshCredential(ctx, user.UserID, tokens.RefreshToken); err != nil {
		s.LogError(ctx, err, "Failed to store refresh credential", slog.String("user_id", user.UserID))
		return domain.TokenPair{}, fmt.Errorf("failed to store refresh credential: %w", err)
	}
	return tokens, nil
}

// Refresh rotates a refresh token. Each refresh token can be exchanged at most once.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (pair *domain.TokenPair, err error) {
	defer func() { s.observe("refresh", err) }()

	if refreshToken == "" {
		return nil, apperrors.ErrMissingToken
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.LogInfo(ctx, "Refresh rejected", slog.String("reason", apperrors.Reason(err)))
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, "Refresh rejected", slog.String("user_id", claims.SubjectID), slog.String("reason", "unknown_user"))
			return nil, apperrors.ErrUnknownUser
		}
		s.LogError(ctx, err, "Failed to load user for refresh", slog.String("user_id", claims.SubjectID))
		return nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}

	current, err := s.users.VerifyRefreshCredential(ctx, user.UserID, refreshToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to verify refresh credential", slog.String("user_id", user.UserID))
		return nil, fmt.Errorf("failed to verify refresh credential: %w", err)
	}
	if !current {
		s.LogWarn(ctx, "Refresh rejected", slog.String("user_id", user.UserID), slog.String("reason", "stale_credential"))
		return nil, apperrors.ErrStaleCredential
	}

	// Role is taken from the store, not the old token.
	next, err := s.tokens.IssuePair(user.UserID, user.Role)
	if err != nil {
		s.LogError(ctx, err, "Failed to issue tokens", slog.String("user_id", user.UserID))
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	swapped, err := s.users.ReplaceRefreshCredential(ctx, user.UserID, refreshToken, next.RefreshToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to rotate refresh credential", slog.String("user_id", user.UserID))
		return nil, fmt.Errorf("failed to rotate refresh credential: %w", err)
	}
	if !swapped {
		s.LogWarn(ctx, "Refresh rejected", slog.String("user_id", user.UserID), slog.String("reason", "rotation_race_lost"))
		return nil, apperrors.ErrStaleCredential
	}

	s.LogDebug(ctx, "Session rotated", slog.String("user_id", user.UserID))
	return &next, nil
}

// Logout is best-effort and never reports failure to the caller.
func (s *sessionService) Logout(ctx context.Context, refreshToken string) {
	var err error
	defer func() { s.observe("logout", err) }()

	if refreshToken == "" {
		err = apperrors.ErrMissingToken
		s.LogDebug(ctx, "Logout without refresh token")
		return
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.LogInfo(ctx, "Logout with unusable refresh token", slog.String("reason", apperrors.Reason(err)))
		return
	}

	if err = s.users.ClearRefreshCredential(ctx, claims.SubjectID); err != nil {
		s.LogWarn(ctx, "Failed to clear refresh credential on logout",
			slog.String("user_id", claims.SubjectID),
			slog.String("error", err.Error()))
		return
	}
	s.LogInfo(ctx, "User logged out", slog.String("user_id", claims.SubjectID))
}

// WhoAmI returns the redacted account behind a verified identity.
func (s *sessionService) WhoAmI(ctx context.Context, subjectID string) (*domain.PublicUser, error) {
	user, err := s.users.FindUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnknownUser
		}
		s.LogError(ctx, err, "Failed to load user", slog.String("user_id", subjectID))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	public := user.Public()
	return &public, nil
}

func (s *sessionService) validateRegistration(ctx context.Context, in portssvc.RegisterInput) error {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, describeFieldErrors(fieldErrs))
		}
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if len(in.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", apperrors.ErrValidation, maxPasswordBytes)
	}
	if !*in.Consent {
		return fmt.Errorf("%w: consent is required", apperrors.ErrValidation)
	}
	return nil
}

func describeFieldErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
