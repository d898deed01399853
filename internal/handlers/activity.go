package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/services"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// ListActivity returns activity logs, newest first
func (h *ActivityHandler) ListActivity(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var (
		input services.ListActivityInput
		err   error
	)
	if input.TaskID, err = queryID(c, "taskId"); err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	if input.UserID, err = queryID(c, "userId"); err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	if input.ProjectID, err = queryID(c, "projectId"); err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	entries, err := h.activityService.ListActivity(c.Request.Context(), identity, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToActivityDTOs(entries))
}
