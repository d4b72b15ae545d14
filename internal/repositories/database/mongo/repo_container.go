// Package mongo is the MongoDB-backed Credential Store.
package mongo

import (
	"context"
	"log/slog"
	"time"

	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/SscSPs/therapy_app/pkg/database"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

const disconnectTimeout = 5 * time.Second

// NewRepositoryProvider wires the Mongo-backed repositories against dbName and
// makes sure the required indexes exist. Close disconnects the client.
func NewRepositoryProvider(ctx context.Context, client *mongodriver.Client, dbName string) (portsrepo.RepositoryProvider, error) {
	userRepo := newUserRepository(client.Database(dbName))
	if err := userRepo.ensureIndexes(ctx); err != nil {
		return portsrepo.RepositoryProvider{}, err
	}
	slog.Info("MongoDB indexes ensured.", slog.String("database", dbName))

	return portsrepo.RepositoryProvider{
		UserRepo: userRepo,
		Close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()
			database.CloseMongoClient(ctx, client)
		},
	}, nil
}
