// Package localidp is an in-process IdentityProvider backed by argon2id
// hashes held in memory. It exists for development setups and tests where
// running the real identity service is overkill.
package localidp

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	authcore "github.com/pagelinkhq/authcore"
	"github.com/pagelinkhq/authcore/password"
)

type identity struct {
	subjectID string
	hash      string
}

// Provider stores identities in memory. Safe for concurrent use. Contents do
// not survive a restart.
type Provider struct {
	hasher *password.Hasher

	mu         sync.RWMutex
	identities map[string]identity
}

func New() (*Provider, error) {
	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Provider{
		hasher:     hasher,
		identities: make(map[string]identity),
	}, nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, pass string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := p.hasher.Hash(pass)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.identities[email]; exists {
		return "", authcore.ErrIdentityExists
	}

	id := uuid.NewString()
	p.identities[email] = identity{
		subjectID: id,
		hash:      hash,
	}
	return id, nil
}

func (p *Provider) Authenticate(ctx context.Context, email, pass string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	p.mu.RLock()
	entry, exists := p.identities[email]
	p.mu.RUnlock()

	if !exists {
		return "", authcore.ErrInvalidCredentials
	}

	ok, err := p.hasher.Verify(pass, entry.hash)
	if err != nil || !ok {
		return "", authcore.ErrInvalidCredentials
	}
	return entry.subjectID, nil
}
