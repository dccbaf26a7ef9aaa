package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// SessionVerifier resolves a bearer credential to the principal's profile.
type SessionVerifier interface {
	Verify(ctx context.Context, credential string) (models.Profile, error)
}

type principalKey struct{}

// Authenticate rejects requests that do not carry a valid access credential
// and attaches the resolved principal to the request context.
func Authenticate(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := auth.CredentialFromRequest(r)
			if !ok {
				writeUnauthorized(w, auth.ErrNoCredential.Error())
				return
			}

			profile, err := verifier.Verify(r.Context(), credential)
			if err != nil {
				logging.FromContext(r.Context()).Warn("session verification failed", "error", err)
				writeUnauthorized(w, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), profile)))
		})
	}
}

// MaybeAuthenticate attaches the principal when a valid credential is present
// but lets anonymous requests through. Used by read models that only need the
// requester for relative flags such as isLiked.
func MaybeAuthenticate(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := auth.CredentialFromRequest(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			profile, err := verifier.Verify(r.Context(), credential)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), profile)))
		})
	}
}

// WithPrincipal stores the authenticated principal on the context.
func WithPrincipal(ctx context.Context, profile models.Profile) context.Context {
	return context.WithValue(ctx, principalKey{}, profile)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (models.Profile, bool) {
	profile, ok := ctx.Value(principalKey{}).(models.Profile)
	return profile, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
		"data":    nil,
	})
}
