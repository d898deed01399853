package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"github.com/yukikurage/tenant-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound       = newError(ErrNotFound, "task not found")
	ErrTitleRequired      = newError(ErrValidation, "title is required")
	ErrInvalidStatus      = newError(ErrValidation, "status must be one of TODO, IN_PROGRESS, DONE")
	ErrInvalidPriority    = newError(ErrValidation, "priority must be one of LOW, MEDIUM, HIGH")
	ErrInvalidTaskProject = newError(ErrValidation, "project does not exist in this organization")
	ErrInvalidAssignee    = newError(ErrValidation, "assignee is not a member of this organization")
	ErrInvalidSortField   = newError(ErrValidation, "sortBy must be one of createdAt, dueDate")
	ErrInvalidSortOrder   = newError(ErrValidation, "order must be one of asc, desc")
	ErrInvalidPage        = newError(ErrValidation, "page must be at least 1")
	ErrInvalidLimit       = newError(ErrValidation, "limit must be between 1 and 100")
)

// TaskService is the task mutation engine. Every mutation runs as one
// transaction holding the task write and its activity log.
type TaskService struct {
	repos    *repository.Repositories
	recorder ActivityRecorder
	now      Clock
}

// NewTaskService creates a new TaskService
func NewTaskService(repos *repository.Repositories, recorder ActivityRecorder, now Clock) *TaskService {
	return &TaskService{
		repos:    repos,
		recorder: recorder,
		now:      clockOrDefault(now),
	}
}

// ListTasksInput represents filters for listing tasks of one project
type ListTasksInput struct {
	ProjectID  uint64
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *uint64
	Search     string
	SortBy     string
	Order      string
	Page       int
	Limit      int
}

// TaskPage is one page of a task listing
type TaskPage struct {
	Tasks []models.Task
	Total int64
	Page  int
	Limit int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   uint64
	Title       string
	Description *string
	Priority    *models.TaskPriority
	DueDate     *time.Time
	AssignedTo  *uint64
}

// UpdateTaskInput represents a full update. Only fields that are Set are
// written; a Set field with a nil Value clears a nullable column.
type UpdateTaskInput struct {
	Version     uint64
	Title       utils.Optional[string]
	Description utils.Optional[string]
	Status      utils.Optional[models.TaskStatus]
	Priority    utils.Optional[models.TaskPriority]
	DueDate     utils.Optional[time.Time]
	AssignedTo  utils.Optional[uint64]
}

// ListTasks returns the live tasks of a project in the actor's organization
func (s *TaskService) ListTasks(ctx context.Context, actor tenant.Identity, input ListTasksInput) (*TaskPage, error) {
	if input.Page < 1 {
		return nil, ErrInvalidPage
	}
	if input.Limit < 1 || input.Limit > 100 {
		return nil, ErrInvalidLimit
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	filter := repository.TaskFilter{
		OrganizationID: actor.OrganizationID,
		ProjectID:      input.ProjectID,
		Status:         input.Status,
		Priority:       input.Priority,
		AssignedTo:     input.AssignedTo,
		Search:         strings.TrimSpace(input.Search),
		Pagination:     utils.NewPaginationParams(input.Page, input.Limit),
	}

	switch input.SortBy {
	case "", "createdAt":
		filter.SortBy = repository.SortByCreatedAt
	case "dueDate":
		filter.SortBy = repository.SortByDueDate
	default:
		return nil, ErrInvalidSortField
	}

	switch strings.ToLower(input.Order) {
	case "", "desc":
	case "asc":
		filter.Ascending = true
	default:
		return nil, ErrInvalidSortOrder
	}

	tasks, total, err := s.repos.Tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &TaskPage{
		Tasks: tasks,
		Total: total,
		Page:  filter.Pagination.Page,
		Limit: filter.Pagination.Limit,
	}, nil
}

// GetTask returns a live task of the actor's organization
func (s *TaskService) GetTask(ctx context.Context, actor tenant.Identity, taskID uint64) (*models.Task, error) {
	return findTask(ctx, s.repos, actor.OrganizationID, taskID)
}

// CreateTask inserts a task at version 0 and logs CREATED
func (s *TaskService) CreateTask(ctx context.Context, actor tenant.Identity, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	priority := models.TaskPriorityMedium
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidPriority
		}
		priority = *input.Priority
	}
	dueDate := normalizeTime(input.DueDate)

	var created *models.Task
	err := s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		if _, err := tx.Projects.FindByID(ctx, actor.OrganizationID, input.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidTaskProject
			}
			return fmt.Errorf("failed to find project: %w", err)
		}

		if input.AssignedTo != nil {
			if err := ensureAssignee(ctx, tx, actor.OrganizationID, *input.AssignedTo); err != nil {
				return err
			}
		}

		task := &models.Task{
			Title:          input.Title,
			Description:    input.Description,
			Status:         models.TaskStatusTodo,
			Priority:       priority,
			DueDate:        dueDate,
			AssignedTo:     input.AssignedTo,
			ProjectID:      input.ProjectID,
			OrganizationID: actor.OrganizationID,
			Version:        0,
			CreatedAt:      s.now(),
		}
		if err := tx.Tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		err := s.recorder.Record(ctx, tx, task.ID, actor.UserID, models.CreatedChanges{
			Title:       input.Title,
			ProjectID:   input.ProjectID,
			Description: input.Description,
			Priority:    input.Priority,
			DueDate:     dueDate,
			AssignedTo:  input.AssignedTo,
		})
		if err != nil {
			return err
		}

		created, err = findTask(ctx, tx, actor.OrganizationID, task.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateTask applies a full update guarded by the caller's version. The
// version is bumped even when no field value changed, but UPDATED is only
// logged when something did.
func (s *TaskService) UpdateTask(ctx context.Context, actor tenant.Identity, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	if input.Title.Set && (input.Title.Value == nil || strings.TrimSpace(*input.Title.Value) == "") {
		return nil, ErrTitleRequired
	}
	if input.Status.Set && (input.Status.Value == nil || !input.Status.Value.IsValid()) {
		return nil, ErrInvalidStatus
	}
	if input.Priority.Set && (input.Priority.Value == nil || !input.Priority.Value.IsValid()) {
		return nil, ErrInvalidPriority
	}

	var updated *models.Task
	err := s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		current, err := findTask(ctx, tx, actor.OrganizationID, taskID)
		if err != nil {
			return err
		}

		if input.AssignedTo.Set && input.AssignedTo.Value != nil {
			if err := ensureAssignee(ctx, tx, actor.OrganizationID, *input.AssignedTo.Value); err != nil {
				return err
			}
		}

		fields, diff, err := s.buildUpdate(current, input)
		if err != nil {
			return err
		}

		affected, err := tx.Tasks.CompareAndSwap(ctx, actor.OrganizationID, taskID, input.Version, fields)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if affected == 0 {
			return versionConflict(ctx, tx, actor.OrganizationID, current, input.Version)
		}

		if len(diff) > 0 {
			if err := s.recorder.Record(ctx, tx, taskID, actor.UserID, diff); err != nil {
				return err
			}
		}

		updated, err = findTask(ctx, tx, actor.OrganizationID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// TransitionStatus moves a task to status. Moving to the current status is a
// no-op that returns the task untouched.
func (s *TaskService) TransitionStatus(ctx context.Context, actor tenant.Identity, taskID uint64, status models.TaskStatus, version uint64) (*models.Task, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	var result *models.Task
	err := s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		current, err := findTask(ctx, tx, actor.OrganizationID, taskID)
		if err != nil {
			return err
		}

		if current.Status == status {
			result = current
			return nil
		}

		fields := map[string]any{"status": status}
		if status == models.TaskStatusDone {
			fields["completed_at"] = s.completedAtOnce()
		}

		affected, err := tx.Tasks.CompareAndSwap(ctx, actor.OrganizationID, taskID, version, fields)
		if err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}
		if affected == 0 {
			return versionConflict(ctx, tx, actor.OrganizationID, current, version)
		}

		err = s.recorder.Record(ctx, tx, taskID, actor.UserID, models.StatusChangedChanges{
			Status:  models.Transition[models.TaskStatus]{From: current.Status, To: status},
			Version: models.Transition[uint64]{From: version, To: version + 1},
		})
		if err != nil {
			return err
		}

		result, err = findTask(ctx, tx, actor.OrganizationID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteTask soft-deletes a task and logs DELETED with its title. It takes
// no version and leaves the version untouched.
func (s *TaskService) DeleteTask(ctx context.Context, actor tenant.Identity, taskID uint64) error {
	return s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		current, err := findTask(ctx, tx, actor.OrganizationID, taskID)
		if err != nil {
			return err
		}

		affected, err := tx.Tasks.SoftDelete(ctx, actor.OrganizationID, taskID, s.now())
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if affected == 0 {
			return ErrTaskNotFound
		}

		return s.recorder.Record(ctx, tx, taskID, actor.UserID, models.DeletedChanges{Title: current.Title})
	})
}

// buildUpdate returns the column assignments for every submitted field and
// the diff of the fields whose value actually changed.
func (s *TaskService) buildUpdate(current *models.Task, input UpdateTaskInput) (map[string]any, models.UpdatedChanges, error) {
	fields := map[string]any{}
	diff := models.UpdatedChanges{}

	track := func(field, column string, from, to any) error {
		fields[column] = to
		change, err := models.NewFieldChange(from, to)
		if err != nil {
			return fmt.Errorf("failed to diff %s: %w", field, err)
		}
		if change.Changed() {
			diff[field] = change
		}
		return nil
	}

	if input.Title.Set {
		if err := track("title", "title", current.Title, *input.Title.Value); err != nil {
			return nil, nil, err
		}
	}
	if input.Description.Set {
		if err := track("description", "description", current.Description, input.Description.Value); err != nil {
			return nil, nil, err
		}
	}
	if input.Status.Set {
		if err := track("status", "status", current.Status, *input.Status.Value); err != nil {
			return nil, nil, err
		}
		if *input.Status.Value == models.TaskStatusDone {
			fields["completed_at"] = s.completedAtOnce()
		}
	}
	if input.Priority.Set {
		if err := track("priority", "priority", current.Priority, *input.Priority.Value); err != nil {
			return nil, nil, err
		}
	}
	if input.DueDate.Set {
		if err := track("dueDate", "due_date", normalizeTime(current.DueDate), normalizeTime(input.DueDate.Value)); err != nil {
			return nil, nil, err
		}
	}
	if input.AssignedTo.Set {
		if err := track("assignedTo", "assigned_to", current.AssignedTo, input.AssignedTo.Value); err != nil {
			return nil, nil, err
		}
	}

	return fields, diff, nil
}

// completedAtOnce stamps completed_at only if it was never set.
func (s *TaskService) completedAtOnce() any {
	return gorm.Expr("COALESCE(completed_at, ?)", s.now())
}

func findTask(ctx context.Context, repos *repository.Repositories, orgID, taskID uint64) (*models.Task, error) {
	task, err := repos.Tasks.FindByID(ctx, orgID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func ensureAssignee(ctx context.Context, tx *repository.Repositories, orgID, userID uint64) error {
	ids, err := tx.Users.FilterInOrganization(ctx, orgID, []uint64{userID})
	if err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if len(ids) != 1 {
		return ErrInvalidAssignee
	}
	return nil
}

// versionConflict explains a lost swap: the task vanished, or its version moved.
func versionConflict(ctx context.Context, tx *repository.Repositories, orgID uint64, observed *models.Task, expected uint64) error {
	latest, err := findTask(ctx, tx, orgID, observed.ID)
	if err != nil {
		return err
	}
	return &VersionConflictError{
		TaskID:          observed.ID,
		ExpectedVersion: expected,
		CurrentVersion:  latest.Version,
	}
}
