package domain

import "time"

// TokenKind distinguishes the two signed credentials.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Identity is the minimal verified claim attached to an authenticated request.
type Identity struct {
	SubjectID string
	Role      Role
}

// RefreshClaims is what a verified refresh token yields. Role is deliberately absent:
// it is re-read from storage on every use.
type RefreshClaims struct {
	SubjectID string
	ExpiresAt time.Time
}

// TokenPair is minted on register, login and refresh. It is never persisted.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// SessionResult is returned by register and login.
type SessionResult struct {
	Tokens TokenPair
	User   PublicUser
}
