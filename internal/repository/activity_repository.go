package repository

import (
	"context"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"gorm.io/gorm"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

// Append inserts one log row
func (r *GormActivityRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Omit("Task", "User").Create(entry).Error
}

// List reads logs of the organization, newest first
func (r *GormActivityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.ActivityLog, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Scopes(tenant.ActivityLogs(filter.OrganizationID))

	if filter.TaskID != nil {
		query = query.Where("activity_logs.task_id = ?", *filter.TaskID)
	}
	if filter.UserID != nil {
		query = query.Where("activity_logs.user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		projectTasks := r.db.Session(&gorm.Session{NewDB: true}).
			Unscoped().
			Model(&models.Task{}).
			Select("tasks.id").
			Where("tasks.project_id = ?", *filter.ProjectID)
		query = query.Where("activity_logs.task_id IN (?)", projectTasks)
	}

	var logs []models.ActivityLog
	if err := query.
		Preload("User", unscoped).
		Preload("Task", unscoped).
		Order("activity_logs.timestamp DESC").
		Order("activity_logs.id DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
