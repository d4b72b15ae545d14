package services

import (
	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/therapy_app/internal/core/ports/services"
	"github.com/SscSPs/therapy_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// It fails when the token codec cannot be built from cfg.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, observer AuthObserver) (*portssvc.ServiceContainer, error) {
	tokens, err := NewTokenService(cfg)
	if err != nil {
		return nil, err
	}

	var opts []SessionServiceOption
	if observer != nil {
		opts = append(opts, WithAuthObserver(observer))
	}

	return &portssvc.ServiceContainer{
		Tokens:  tokens,
		Session: NewSessionService(repos.UserRepo, tokens, opts...),
	}, nil
}
