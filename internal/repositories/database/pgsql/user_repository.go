package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/SscSPs/therapy_app/internal/models"
	"github.com/SscSPs/therapy_app/internal/utils"
	"github.com/SscSPs/therapy_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `user_id, email, password_hash, role, refresh_token_hash,
	questionnaire_done, consent_given_at, created_at, updated_at, deleted_at`

type PgxUserRepository struct {
	BaseRepository
}

func newPgxUserRepository(db *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return &PgxUserRepository{BaseRepository: BaseRepository{Pool: db}}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

func scanUser(row pgx.Row) (*domain.User, error) {
	var m models.User
	err := row.Scan(
		&m.UserID,
		&m.Email,
		&m.PasswordHash,
		&m.Role,
		&m.RefreshCredentialHash,
		&m.QuestionnaireDone,
		&m.ConsentGivenAt,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	d := mapping.ToDomainUser(m)
	return &d, nil
}

func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	query := `
        INSERT INTO users (user_id, email, password_hash, role, refresh_token_hash,
                           questionnaire_done, consent_given_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
    `
	_, err := r.Pool.Exec(ctx, query,
		m.UserID,
		m.Email,
		m.PasswordHash,
		m.Role,
		m.RefreshCredentialHash,
		m.QuestionnaireDone,
		m.ConsentGivenAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1 AND deleted_at IS NULL;`
	user, err := scanUser(r.Pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID %s: %w", userID, err)
	}
	return user, nil
}

func (r *PgxUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL;`
	user, err := scanUser(r.Pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

func (r *PgxUserRepository) SetRefreshCredential(ctx context.Context, userID string, refreshToken string) error {
	return r.updateRefreshHash(ctx, userID, utils.HashRefreshToken(refreshToken))
}

func (r *PgxUserRepository) ClearRefreshCredential(ctx context.Context, userID string) error {
	return r.updateRefreshHash(ctx, userID, nil)
}

func (r *PgxUserRepository) updateRefreshHash(ctx context.Context, userID string, hash any) error {
	query := `
        UPDATE users
        SET refresh_token_hash = $2, updated_at = NOW()
        WHERE user_id = $1 AND deleted_at IS NULL;
    `
	cmdTag, err := r.Pool.Exec(ctx, query, userID, hash)
	if err != nil {
		return fmt.Errorf("failed to update refresh credential: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user not found or already deleted: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (r *PgxUserRepository) VerifyRefreshCredential(ctx context.Context, userID string, presented string) (bool, error) {
	query := `SELECT refresh_token_hash FROM users WHERE user_id = $1 AND deleted_at IS NULL;`
	var stored *string
	if err := r.Pool.QueryRow(ctx, query, userID).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read refresh credential: %w", err)
	}
	return utils.CompareRefreshTokenHash(presented, stored), nil
}

// ReplaceRefreshCredential swaps the hash in a single conditional UPDATE so that
// two concurrent rotations of the same token cannot both succeed.
func (r *PgxUserRepository) ReplaceRefreshCredential(ctx context.Context, userID string, presented string, next string) (bool, error) {
	query := `
        UPDATE users
        SET refresh_token_hash = $3, updated_at = NOW()
        WHERE user_id = $1 AND refresh_token_hash = $2 AND deleted_at IS NULL;
    `
	cmdTag, err := r.Pool.Exec(ctx, query, userID, utils.HashRefreshToken(presented), utils.HashRefreshToken(next))
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh credential: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}
