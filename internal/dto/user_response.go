package dto

import "github.com/SscSPs/therapy_app/internal/core/domain"

// UserResponse is the redacted account representation.
type UserResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	QuestionnaireDone bool   `json:"questionnaireDone"`
}

func ToUserResponse(user domain.PublicUser) UserResponse {
	return UserResponse{
		ID:                user.UserID,
		Email:             user.Email,
		Role:              string(user.Role),
		QuestionnaireDone: user.QuestionnaireDone,
	}
}
