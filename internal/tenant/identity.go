package tenant

import (
	"context"

	"github.com/yukikurage/tenant-task-api/internal/models"
)

// Identity is the authenticated actor. OrganizationID always comes from here,
// never from request input.
type Identity struct {
	UserID         uint64
	OrganizationID uint64
	Role           models.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

func (i Identity) Valid() bool {
	return i.UserID != 0 && i.OrganizationID != 0
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
