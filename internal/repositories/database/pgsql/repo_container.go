package pgsql

import (
	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/SscSPs/therapy_app/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the Postgres-backed repositories. Close releases the pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo: newPgxUserRepository(dbPool),
		Close:    func() { database.ClosePgxPool(dbPool) },
	}
}
