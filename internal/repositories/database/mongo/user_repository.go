package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/SscSPs/therapy_app/internal/models"
	"github.com/SscSPs/therapy_app/internal/utils"
	"github.com/SscSPs/therapy_app/internal/utils/mapping"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// UserRepository stores accounts as documents keyed by user ID.
type UserRepository struct {
	users *mongodriver.Collection
}

var _ portsrepo.UserRepositoryFacade = (*UserRepository)(nil)

func newUserRepository(db *mongodriver.Database) *UserRepository {
	return &UserRepository{users: db.Collection(usersCollection)}
}

// ensureIndexes creates the unique email index the duplicate check relies on.
func (r *UserRepository) ensureIndexes(ctx context.Context) error {
	indexModels := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
	}
	if _, err := r.users.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

// live matches documents that have not been soft-deleted.
func live(filter bson.M) bson.M {
	filter["deleted_at"] = nil
	return filter
}

func (r *UserRepository) SaveUser(ctx context.Context, user domain.User) error {
	doc := mapping.ToUserDocument(user)
	doc.Email = utils.NormalizeEmail(doc.Email)
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return apperrors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc models.UserDocument
	if err := r.users.FindOne(ctx, live(filter)).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user := mapping.FromUserDocument(doc)
	return &user, nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": utils.NormalizeEmail(email)})
}

func (r *UserRepository) SetRefreshCredential(ctx context.Context, userID string, refreshToken string) error {
	return r.setRefreshHash(ctx, userID, utils.HashRefreshToken(refreshToken))
}

func (r *UserRepository) ClearRefreshCredential(ctx context.Context, userID string) error {
	return r.setRefreshHash(ctx, userID, nil)
}

func (r *UserRepository) setRefreshHash(ctx context.Context, userID string, hash any) error {
	update := bson.M{"$set": bson.M{"refresh_token_hash": hash, "updated_at": time.Now().UTC()}}
	res, err := r.users.UpdateOne(ctx, live(bson.M{"_id": userID}), update)
	if err != nil {
		return fmt.Errorf("failed to update refresh credential: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user not found or already deleted: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) VerifyRefreshCredential(ctx context.Context, userID string, presented string) (bool, error) {
	user, err := r.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return utils.CompareRefreshTokenHash(presented, user.RefreshCredentialHash), nil
}

// ReplaceRefreshCredential relies on UpdateOne being atomic per document: the
// filter on the current hash turns it into a compare-and-swap.
func (r *UserRepository) ReplaceRefreshCredential(ctx context.Context, userID string, presented string, next string) (bool, error) {
	filter := live(bson.M{"_id": userID, "refresh_token_hash": utils.HashRefreshToken(presented)})
	update := bson.M{"$set": bson.M{"refresh_token_hash": utils.HashRefreshToken(next), "updated_at": time.Now().UTC()}}
	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh credential: %w", err)
	}
	return res.MatchedCount == 1, nil
}
