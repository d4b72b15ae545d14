package dto

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" example:"alice@test.com"`
	Password string `json:"password" example:"password123"`
	Role     string `json:"role" example:"patient" enums:"patient,therapist"`
	Consent  *bool  `json:"consent" example:"true"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@test.com"`
	Password string `json:"password" example:"password123"`
}
