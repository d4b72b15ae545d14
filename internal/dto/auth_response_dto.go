package dto

// AuthResponse is returned by register and login. The refresh token travels
// only in the HttpOnly cookie.
type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	User        UserResponse `json:"user"`
}

// RefreshTokenResponse represents the response for a successful token refresh.
type RefreshTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// MeResponse wraps the caller's own account.
type MeResponse struct {
	User UserResponse `json:"user"`
}

// EmptyResponse is the `{}` body of logout.
type EmptyResponse struct{}

// ErrorResponse is the body of every error. Detail is only filled in local mode.
type ErrorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
