package mapping

import (
	"database/sql"

	"github.com/SscSPs/therapy_app/internal/core/domain"
	"github.com/SscSPs/therapy_app/internal/models"
)

// ToModelUser converts a domain User to a model User
func ToModelUser(d domain.User) models.User {
	m := models.User{
		UserID:            d.UserID,
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		Role:              string(d.Role),
		QuestionnaireDone: d.QuestionnaireDone,
		ConsentGivenAt:    d.ConsentGivenAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.RefreshCredentialHash != nil {
		m.RefreshCredentialHash = sql.NullString{String: *d.RefreshCredentialHash, Valid: true}
	}
	if d.DeletedAt != nil {
		m.DeletedAt = sql.NullTime{Time: *d.DeletedAt, Valid: true}
	}
	return m
}

// ToDomainUser converts a model User to a domain User
func ToDomainUser(m models.User) domain.User {
	d := domain.User{
		UserID:            m.UserID,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Role:              domain.Role(m.Role),
		QuestionnaireDone: m.QuestionnaireDone,
		ConsentGivenAt:    m.ConsentGivenAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.RefreshCredentialHash.Valid {
		h := m.RefreshCredentialHash.String
		d.RefreshCredentialHash = &h
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		d.DeletedAt = &t
	}
	return d
}

// ToUserDocument converts a domain User to its document representation
func ToUserDocument(d domain.User) models.UserDocument {
	return models.UserDocument{
		UserID:                d.UserID,
		Email:                 d.Email,
		PasswordHash:          d.PasswordHash,
		Role:                  string(d.Role),
		RefreshCredentialHash: d.RefreshCredentialHash,
		QuestionnaireDone:     d.QuestionnaireDone,
		ConsentGivenAt:        d.ConsentGivenAt,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
		DeletedAt:             d.DeletedAt,
	}
}

// FromUserDocument converts a stored document to a domain User
func FromUserDocument(m models.UserDocument) domain.User {
	return domain.User{
		UserID:                m.UserID,
		Email:                 m.Email,
		PasswordHash:          m.PasswordHash,
		Role:                  domain.Role(m.Role),
		RefreshCredentialHash: m.RefreshCredentialHash,
		QuestionnaireDone:     m.QuestionnaireDone,
		ConsentGivenAt:        m.ConsentGivenAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
		DeletedAt:             m.DeletedAt,
	}
}
