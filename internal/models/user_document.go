package models

import "time"

// UserDocument is the persisted shape of an account in the users collection.
type UserDocument struct {
	UserID                string     `bson:"_id"`
	Email                 string     `bson:"email"`
	PasswordHash          string     `bson:"password_hash"`
	Role                  string     `bson:"role"`
	RefreshCredentialHash *string    `bson:"refresh_token_hash"`
	QuestionnaireDone     bool       `bson:"questionnaire_done"`
	ConsentGivenAt        time.Time  `bson:"consent_given_at"`
	CreatedAt             time.Time  `bson:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at"`
	DeletedAt             *time.Time `bson:"deleted_at,omitempty"`
}
