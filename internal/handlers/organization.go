package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tenant-task-api/internal/dto"
	"github.com/yukikurage/tenant-task-api/internal/services"
)

type OrganizationHandler struct {
	orgService *services.OrganizationService
}

func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
	}
}

// GetOrganization returns the caller's organization and its members.
// Only admins see the invite code.
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	org, members, err := h.orgService.GetOrganization(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org, members, identity.IsAdmin()))
}

// ListUsers returns the users of the caller's organization
func (h *OrganizationHandler) ListUsers(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	users, err := h.orgService.ListUsers(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTOs(users))
}
