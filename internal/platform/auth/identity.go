package auth

import (
	"context"
	"strings"
	"time"
)

// Role constants used throughout the API when checking authorisation boundaries.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity captures the authenticated principal details extracted from a
// verified access token. RawToken keeps the original bearer string so order
// creation can retain it as the ERP forwarding credential.
type Identity struct {
	UID       string
	Email     string
	Roles     []string
	RawToken  string
	ExpiresAt time.Time
}

// HasRole reports whether the identity includes the requested role (case-insensitive).
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range i.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity includes any of the provided roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// ServiceIdentity captures a machine-to-machine principal (e.g. an internal
// service calling the API) so request scoping can distinguish it from an
// end-user identity.
type ServiceIdentity struct {
	Subject string
}

type contextKey string

const identityContextKey contextKey = "github.com/kurumsal-tedarikci/api/internal/platform/auth/identity"

const serviceIdentityContextKey contextKey = "github.com/kurumsal-tedarikci/api/internal/platform/auth/service-identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// WithServiceIdentity stores the service identity within the context for
// downstream handlers.
func WithServiceIdentity(ctx context.Context, identity *ServiceIdentity) context.Context {
	return context.WithValue(ctx, serviceIdentityContextKey, identity)
}

// ServiceIdentityFromContext retrieves the service identity previously stored
// in context.
func ServiceIdentityFromContext(ctx context.Context) (*ServiceIdentity, bool) {
	identity, ok := ctx.Value(serviceIdentityContextKey).(*ServiceIdentity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
