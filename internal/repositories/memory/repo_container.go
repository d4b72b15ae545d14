package memory

import portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"

// NewRepositoryProvider wires the in-memory repositories.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo: NewUserRepository(),
		Close:    func() {},
	}
}
