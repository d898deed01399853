package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
)

const paramKeyPrefix = "param:"

// RequireIDParam parses a positive integer path parameter and stores it for
// GetIDParam. Malformed ids answer 400 before any lookup happens.
func RequireIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(name), 10, 64)
		if err != nil || id == 0 {
			apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
			return
		}

		c.Set(paramKeyPrefix+name, id)
		c.Next()
	}
}

// GetIDParam returns a parameter parsed by RequireIDParam
func GetIDParam(c *gin.Context, name string) (uint64, bool) {
	value, exists := c.Get(paramKeyPrefix + name)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}
