// Package auth is the identity provider boundary: it resolves a caller's
// credential to the owner identity every other component scopes itself to.
package auth

import (
	"context"
	"errors"

	"finease/internal/core"
)

// Identity is the authenticated user as the rest of the application sees
// it. OwnerID is the authorization scope for every record operation.
type Identity struct {
	OwnerID   string
	Name      string
	Email     string
	AvatarURL string
}

// Provider resolves a bearer credential to an Identity. Implementations
// return core.ErrNotAuthenticated for missing or invalid credentials.
type Provider interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}

// StaticProvider maps fixed credentials to identities; used in tests and
// the development backend.
type StaticProvider struct {
	identities map[string]Identity
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{identities: make(map[string]Identity)}
}

// Register associates a credential with an identity.
func (p *StaticProvider) Register(credential string, id Identity) {
	p.identities[credential] = id
}

func (p *StaticProvider) Resolve(_ context.Context, credential string) (Identity, error) {
	id, ok := p.identities[credential]
	if !ok || id.OwnerID == "" {
		return Identity{}, core.ErrNotAuthenticated
	}
	return id, nil
}

var errMissingOwner = errors.New("token has no subject")
