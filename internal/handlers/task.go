package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tenant-task-api/internal/constants"
	"github.com/yukikurage/tenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/services"
	"github.com/yukikurage/tenant-task-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns one page of a project's tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	limit, err := queryInt(c, "limit", constants.DefaultPageSize)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	assignedTo, err := queryID(c, "assignedTo")
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	input := services.ListTasksInput{
		ProjectID:  projectID,
		AssignedTo: assignedTo,
		Search:     c.Query("search"),
		SortBy:     c.Query("sortBy"),
		Order:      c.Query("order"),
		Page:       page,
		Limit:      limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}

	result, err := h.taskService.ListTasks(c.Request.Context(), identity, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(result))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), identity, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string               `json:"title" binding:"required,max=255"`
		ProjectID   uint64               `json:"projectId" binding:"required"`
		Description *string              `json:"description"`
		Priority    *models.TaskPriority `json:"priority"`
		AssignedTo  *uint64              `json:"assignedTo"`
		DueDate     *time.Time           `json:"dueDate"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), identity, services.CreateTaskInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a full update guarded by version
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Version     *uint64                             `json:"version" binding:"required"`
		Title       utils.Optional[string]              `json:"title"`
		Description utils.Optional[string]              `json:"description"`
		Status      utils.Optional[models.TaskStatus]   `json:"status"`
		Priority    utils.Optional[models.TaskPriority] `json:"priority"`
		AssignedTo  utils.Optional[uint64]              `json:"assignedTo"`
		DueDate     utils.Optional[time.Time]           `json:"dueDate"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body: version is required")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), identity, taskID, services.UpdateTaskInput{
		Version:     *req.Version,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateStatus moves a task through the status workflow
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status  models.TaskStatus `json:"status" binding:"required"`
		Version *uint64           `json:"version" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body: status and version are required")
		return
	}

	task, err := h.taskService.TransitionStatus(c.Request.Context(), identity, taskID, req.Status, *req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask soft-deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), identity, taskID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
