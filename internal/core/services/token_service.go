package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portssvc "github.com/SscSPs/therapy_app/internal/core/ports/services"
	"github.com/SscSPs/therapy_app/internal/platform/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionClaims is the single claim shape for both token kinds.
// Role is only set on access tokens.
type sessionClaims struct {
	Role string           `json:"role,omitempty"`
	Kind domain.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenServiceOption customises a tokenService.
type TokenServiceOption func(*tokenService)

// WithClock replaces the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *tokenService) {
		s.now = now
	}
}

// tokenService signs and verifies the two token kinds with independent secrets.
type tokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService creates a TokenCodec from configuration. It refuses to build a
// codec when the secrets are missing or identical.
func NewTokenService(cfg *config.Config, opts ...TokenServiceOption) (portssvc.TokenCodec, error) {
	if err := config.ValidateSecrets(cfg.AccessTokenSecret, cfg.RefreshTokenSecret); err != nil {
		return nil, err
	}
	if cfg.AccessTokenExpiryDuration <= 0 || cfg.RefreshTokenExpiryDuration <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", apperrors.ErrConfiguration)
	}

	s := &tokenService{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenExpiryDuration,
		refreshTTL:    cfg.RefreshTokenExpiryDuration,
		issuer:        cfg.JWTIssuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccess creates a short-lived token carrying the subject and role.
func (s *tokenService) IssueAccess(subjectID string, role domain.Role) (string, error) {
	token, _, err := s.sign(subjectID, role, domain.TokenKindAccess)
	return token, err
}

// IssueRefresh creates a long-lived token carrying only the subject.
func (s *tokenService) IssueRefresh(subjectID string) (string, error) {
	token, _, err := s.sign(subjectID, "", domain.TokenKindRefresh)
	return token, err
}

// IssuePair creates an access and a refresh token for the same subject.
func (s *tokenService) IssuePair(subjectID string, role domain.Role) (domain.TokenPair, error) {
	access, accessExp, err := s.sign(subjectID, role, domain.TokenKindAccess)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := s.sign(subjectID, "", domain.TokenKindRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks signature, expiry and kind of an access token.
func (s *tokenService) VerifyAccess(token string) (domain.Identity, error) {
	claims, err := s.parse(token, s.accessSecret, domain.TokenKindAccess)
	if err != nil {
		return domain.Identity{}, err
	}
	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown role claim %q", apperrors.ErrInvalidToken, claims.Role)
	}
	return domain.Identity{SubjectID: claims.Subject, Role: role}, nil
}

// VerifyRefresh checks signature, expiry and kind of a refresh token.
func (s *tokenService) VerifyRefresh(token string) (domain.RefreshClaims, error) {
	claims, err := s.parse(token, s.refreshSecret, domain.TokenKindRefresh)
	if err != nil {
		return domain.RefreshClaims{}, err
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return domain.RefreshClaims{SubjectID: claims.Subject, ExpiresAt: exp}, nil
}

func (s *tokenService) sign(subjectID string, role domain.Role, kind domain.TokenKind) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("cannot issue a token without a subject")
	}

	secret, ttl := s.accessSecret, s.accessTTL
	if kind == domain.TokenKindRefresh {
		secret, ttl = s.refreshSecret, s.refreshTTL
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := sessionClaims{
		Role: string(role),
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	// NumericDate truncates to seconds; report what the token actually says.
	return signed, claims.ExpiresAt.Time, nil
}

func (s *tokenService) parse(token string, secret []byte, kind domain.TokenKind) (*sessionClaims, error) {
	if token == "" {
		return nil, apperrors.ErrMissingToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", apperrors.ErrInvalidToken, kind, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing", apperrors.ErrInvalidToken)
	}
	return claims, nil
}
