package dto

import (
	"time"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	OrganizationID uint64    `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProjectSummaryDTO is a listed project with its task counters
type ProjectSummaryDTO struct {
	ProjectDTO
	TaskCount    int64 `json:"taskCount"`
	OverdueCount int64 `json:"overdueCount"`
}

// ProjectMembersResponse lists the users assigned to a project
type ProjectMembersResponse struct {
	ProjectID uint64   `json:"projectId"`
	UserIDs   []uint64 `json:"userIds"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:             project.ID,
		Name:           project.Name,
		Description:    project.Description,
		OrganizationID: project.OrganizationID,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
	}
}

// ToProjectSummaryDTOs converts listed projects
func ToProjectSummaryDTOs(projects []repository.ProjectSummary) []ProjectSummaryDTO {
	out := make([]ProjectSummaryDTO, len(projects))
	for i, p := range projects {
		out[i] = ProjectSummaryDTO{
			ProjectDTO:   ToProjectDTO(p.Project),
			TaskCount:    p.TaskCount,
			OverdueCount: p.OverdueCount,
		}
	}
	return out
}
