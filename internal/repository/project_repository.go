package repository

import (
	"context"
	"time"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit("Organization").Create(project).Error
}

// FindByID finds a live project of the organization
func (r *GormProjectRepository) FindByID(ctx context.Context, orgID, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Projects(orgID)).
		First(&project, "projects.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List lists live projects with task counters, newest first
func (r *GormProjectRepository) List(ctx context.Context, orgID uint64, now time.Time) ([]ProjectSummary, error) {
	var projects []ProjectSummary
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Select(`projects.*,
			(SELECT COUNT(*) FROM tasks
			 WHERE tasks.project_id = projects.id AND tasks.deleted_at IS NULL) AS task_count,
			(SELECT COUNT(*) FROM tasks
			 WHERE tasks.project_id = projects.id
			   AND tasks.deleted_at IS NULL
			   AND tasks.status <> ?
			   AND tasks.due_date IS NOT NULL
			   AND tasks.due_date < ?) AS overdue_count`, models.TaskStatusDone, now).
		Scopes(tenant.Projects(orgID)).
		Order("projects.created_at DESC").
		Order("projects.id DESC").
		Scan(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Update applies fields to a live project
func (r *GormProjectRepository) Update(ctx context.Context, orgID, id uint64, fields map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Scopes(tenant.Projects(orgID)).
		Where("projects.id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// SoftDelete marks a live project as deleted
func (r *GormProjectRepository) SoftDelete(ctx context.Context, orgID, id uint64) (int64, error) {
	result := r.db.WithContext(ctx).
		Scopes(tenant.Projects(orgID)).
		Where("projects.id = ?", id).
		Delete(&models.Project{})
	return result.RowsAffected, result.Error
}

// ReplaceMembers swaps the project's member set
func (r *GormProjectRepository) ReplaceMembers(ctx context.Context, projectID uint64, userIDs []uint64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	members := make([]models.ProjectMember, len(userIDs))
	for i, userID := range userIDs {
		members[i] = models.ProjectMember{
			ProjectID: projectID,
			UserID:    userID,
		}
	}
	return db.Omit("Project", "User").Create(&members).Error
}
