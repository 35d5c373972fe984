package auth

import (
	"context"
	"time"
)

// Identity is the verified subject of a request.
type Identity struct {
	Subject string
	Issuer  string

	// Claims holds every claim of the token, registered ones included.
	Claims map[string]any

	// ExpiresAt is zero for tokens without an exp claim.
	ExpiresAt time.Time
}

type identityKey struct{}

// ContextWithIdentity attaches id to ctx.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by the JWT middleware.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// SubjectFromContext returns the subject of the request identity, or "" for
// unauthenticated requests.
func SubjectFromContext(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok {
		return id.Subject
	}
	return ""
}
