package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/models"
)

// RequireTenant rejects identities that carry no organization. Handlers
// behind it can rely on GetIdentity.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := GetIdentity(c)
		if !exists || !identity.Valid() {
			apierrors.Unauthorized(c, "Organization membership required")
			return
		}
		c.Next()
	}
}

// RequireRole allows only the given roles. Role checks answer 403; they
// reveal nothing about other tenants.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := GetIdentity(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}

		apierrors.Forbidden(c, "Insufficient permissions")
	}
}

// RequireAdmin allows only organization admins
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
