package handlers

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/middleware"
	"github.com/yukikurage/tenant-task-api/internal/services"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
)

// respondError maps a service error to its HTTP response. Internal errors
// are logged and never shown to the client.
func respondError(c *gin.Context, err error) {
	var conflict *services.VersionConflictError
	if errors.As(err, &conflict) {
		apierrors.VersionConflict(c, conflict.Error(), apierrors.VersionConflictDetails{
			TaskID:          conflict.TaskID,
			ExpectedVersion: conflict.ExpectedVersion,
			CurrentVersion:  conflict.CurrentVersion,
		})
		return
	}

	switch services.Kind(err) {
	case services.ErrValidation:
		apierrors.BadRequest(c, err.Error())
	case services.ErrNotFound:
		apierrors.NotFound(c, err.Error())
	case services.ErrConflict:
		apierrors.Conflict(c, err.Error())
	case services.ErrForbidden:
		apierrors.Forbidden(c, err.Error())
	case services.ErrUnauthorized:
		apierrors.InvalidCredentials(c, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"error", err,
			"request_id", middleware.GetRequestID(c),
			"path", c.FullPath(),
		)
		apierrors.InternalError(c, "")
	}
}

func currentIdentity(c *gin.Context) (tenant.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return identity, ok
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, ok := middleware.GetIDParam(c, name)
	if !ok {
		apierrors.BadRequest(c, "Invalid "+name)
	}
	return id, ok
}
