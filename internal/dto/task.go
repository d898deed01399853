package dto

import (
	"time"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/services"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	Title          string              `json:"title"`
	Description    *string             `json:"description"`
	Status         models.TaskStatus   `json:"status"`
	Priority       models.TaskPriority `json:"priority"`
	DueDate        *time.Time          `json:"dueDate"`
	AssignedTo     *uint64             `json:"assignedTo"`
	AssigneeName   *string             `json:"assigneeName"`
	ProjectID      uint64              `json:"projectId"`
	OrganizationID uint64              `json:"organizationId"`
	Version        uint64              `json:"version"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	CompletedAt    *time.Time          `json:"completedAt"`
}

// TaskListResponse represents one page of tasks
type TaskListResponse struct {
	Tasks []TaskDTO `json:"tasks"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		DueDate:        task.DueDate,
		AssignedTo:     task.AssignedTo,
		ProjectID:      task.ProjectID,
		OrganizationID: task.OrganizationID,
		Version:        task.Version,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
		CompletedAt:    task.CompletedAt,
	}

	// Include assignee name if preloaded
	if name := task.AssigneeName(); name != "" {
		dto.AssigneeName = &name
	}

	return dto
}

// ToTaskListResponse converts a task page to TaskListResponse
func ToTaskListResponse(page *services.TaskPage) TaskListResponse {
	items := make([]TaskDTO, len(page.Tasks))
	for i, task := range page.Tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks: items,
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	}
}
