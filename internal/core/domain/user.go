package domain

import "time"

// Role is the coarse-grained authorization role of an account.
type Role string

const (
	RolePatient   Role = "patient"
	RoleTherapist Role = "therapist"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RolePatient || r == RoleTherapist
}

// NormalizeRole maps anything that is not a known role to RolePatient.
func NormalizeRole(raw string) Role {
	r := Role(raw)
	if r.IsValid() {
		return r
	}
	return RolePatient
}

// User represents an account together with its credential material.
type User struct {
	UserID                string     `json:"userID"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Role                  Role       `json:"role"`
	RefreshCredentialHash *string    `json:"-"`
	QuestionnaireDone     bool       `json:"questionnaireDone"`
	ConsentGivenAt        time.Time  `json:"consentGivenAt"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
	DeletedAt             *time.Time `json:"-"`
}

// HasActiveSession reports whether a refresh credential is currently stored.
func (u *User) HasActiveSession() bool {
	return u.RefreshCredentialHash != nil && *u.RefreshCredentialHash != ""
}

// PublicUser is the redacted representation that may leave the system boundary.
type PublicUser struct {
	UserID            string `json:"id"`
	Email             string `json:"email"`
	Role              Role   `json:"role"`
	QuestionnaireDone bool   `json:"questionnaireDone"`
}

// Public returns the redacted view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		UserID:            u.UserID,
		Email:             u.Email,
		Role:              u.Role,
		QuestionnaireDone: u.QuestionnaireDone,
	}
}
