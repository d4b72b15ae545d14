package models

import (
	"database/sql"
	"time"
)

// User is the persisted shape of an account in the users table.
type User struct {
	UserID                string         `db:"user_id"`
	Email                 string         `db:"email"`
	PasswordHash          string         `db:"password_hash"`
	Role                  string         `db:"role"`
	RefreshCredentialHash sql.NullString `db:"refresh_token_hash"` // Store hash of the refresh token only
	QuestionnaireDone     bool           `db:"questionnaire_done"`
	ConsentGivenAt        time.Time      `db:"consent_given_at"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
	DeletedAt             sql.NullTime   `db:"deleted_at"`
}
