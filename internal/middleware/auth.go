package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
)

// IdentityResolver turns a credential into a trusted identity.
type IdentityResolver interface {
	Authenticate(ctx context.Context, token string) (tenant.Identity, error)
	ResolveIdentity(ctx context.Context, userID uint64) (tenant.Identity, error)
}

// RequireAuth resolves the caller from a bearer token, falling back to the
// session cookie. The resolved identity is stored in both the gin context and
// the request context.
func RequireAuth(resolver IdentityResolver, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			identity tenant.Identity
			err      error
		)
		if token := bearerToken(c); token != "" {
			identity, err = resolver.Authenticate(ctx, token)
		} else if userID, ok := sessionUserID(c); ok {
			identity, err = resolver.ResolveIdentity(ctx, userID)
		} else {
			apierrors.Unauthorized(c, "")
			return
		}

		if err != nil {
			log.DebugContext(ctx, "authentication rejected", "error", err)
			apierrors.Unauthorized(c, "Invalid or expired credentials")
			return
		}

		c.Set(constants.ContextKeyUserID, identity.UserID)
		c.Set(constants.ContextKeyIdentity, identity)
		c.Request = c.Request.WithContext(tenant.WithIdentity(ctx, identity))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func sessionUserID(c *gin.Context) (uint64, bool) {
	session := sessions.Default(c)
	return toUint64(session.Get(constants.ContextKeyUserID))
}

// GetIdentity retrieves the authenticated identity from context
func GetIdentity(c *gin.Context) (tenant.Identity, bool) {
	value, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return tenant.Identity{}, false
	}
	identity, ok := value.(tenant.Identity)
	return identity, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

func toUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
