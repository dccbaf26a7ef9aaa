package auth

import (
	"context"
	"errors"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// ProfileStore is the identity lookup the verifier falls back to on a cache miss.
type ProfileStore interface {
	FindProfileByID(ctx context.Context, id string) (models.Profile, error)
}

// Verifier resolves a bearer access credential to the principal's sanitized
// profile, consulting the profile cache before the identity store.
type Verifier struct {
	tokens *TokenManager
	cache  *ProfileCache
	users  ProfileStore
}

// NewVerifier constructs a Verifier. All collaborators are required.
func NewVerifier(tokens *TokenManager, cache *ProfileCache, users ProfileStore) *Verifier {
	if tokens == nil || cache == nil || users == nil {
		panic("auth: verifier requires tokens, cache and users")
	}
	return &Verifier{tokens: tokens, cache: cache, users: users}
}

// Verify validates the access credential and returns the resolved profile.
// A cache hit within the ttl never touches the identity store; a miss
// populates the cache for subsequent requests.
func (v *Verifier) Verify(ctx context.Context, credential string) (models.Profile, error) {
	if credential == "" {
		return models.Profile{}, ErrNoCredential
	}

	userID, err := v.tokens.VerifyAccess(credential)
	if err != nil {
		return models.Profile{}, err
	}

	if profile, ok := v.cache.Get(userID); ok {
		return profile, nil
	}

	profile, err := v.users.FindProfileByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Profile{}, ErrTokenInvalid
		}
		return models.Profile{}, err
	}

	v.cache.Set(userID, profile)
	return profile, nil
}

// Evict removes the principal's cached profile. Called on logout before the
// response is written.
func (v *Verifier) Evict(userID string) {
	v.cache.Delete(userID)
}
