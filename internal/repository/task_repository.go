package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/tenant-task-api/internal/database"
	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("Assignee", "Project").Create(task).Error
}

// FindByID finds a live task with its assignee resolved
func (r *GormTaskRepository) FindByID(ctx context.Context, orgID, id uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Scopes(tenant.Tasks(orgID)).
		Preload("Assignee", unscoped).
		First(&task, "tasks.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks of one project with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(tenant.Tasks(filter.OrganizationID)).
		Where("tasks.project_id = ?", filter.ProjectID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Search != "" {
		query = query.Where("tasks.title LIKE ?", "%"+filter.Search+"%")
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := SortByCreatedAt
	if filter.SortBy == SortByDueDate {
		sortBy = SortByDueDate
	}
	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}

	var tasks []models.Task
	err := query.
		Preload("Assignee", unscoped).
		Order(fmt.Sprintf("tasks.%s %s", sortBy, order)).
		Order("tasks.id " + order).
		Scopes(database.Paginate(filter.Pagination)).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CompareAndSwap applies fields and bumps the version in a single conditional
// UPDATE. The version bump guarantees the row changes, so drivers that report
// changed rather than matched rows still report 1 on success.
func (r *GormTaskRepository) CompareAndSwap(ctx context.Context, orgID, id, expectedVersion uint64, fields map[string]any) (int64, error) {
	assignments := make(map[string]any, len(fields)+1)
	for column, value := range fields {
		assignments[column] = value
	}
	assignments["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(tenant.Tasks(orgID)).
		Where("tasks.id = ? AND tasks.version = ?", id, expectedVersion).
		Updates(assignments)
	return result.RowsAffected, result.Error
}

// SoftDelete marks a live task as deleted. It does not touch the version.
func (r *GormTaskRepository) SoftDelete(ctx context.Context, orgID, id uint64, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(tenant.Tasks(orgID)).
		Where("tasks.id = ?", id).
		Update("deleted_at", at)
	return result.RowsAffected, result.Error
}

// Snapshots returns the analytics projection of live tasks
func (r *GormTaskRepository) Snapshots(ctx context.Context, orgID uint64, projectID *uint64) ([]TaskSnapshot, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(tenant.Tasks(orgID)).
		Select("tasks.assigned_to, tasks.status, tasks.due_date, tasks.created_at, tasks.completed_at")

	if projectID != nil {
		query = query.Where("tasks.project_id = ?", *projectID)
	}

	var rows []TaskSnapshot
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// unscoped keeps soft-deleted assignees resolvable by name.
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
