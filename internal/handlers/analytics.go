package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/services"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GetAnalytics reports per-user and per-scope task rollups
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	projectID, err := queryID(c, "projectId")
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	report, err := h.analyticsService.GetAnalytics(c.Request.Context(), identity, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAnalyticsResponse(report))
}
