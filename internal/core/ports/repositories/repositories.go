package repositories

// RepositoryProvider holds all repository interfaces needed by services.
type RepositoryProvider struct {
	UserRepo UserRepositoryFacade
	// Close releases the underlying storage connections.
	Close func()
}
