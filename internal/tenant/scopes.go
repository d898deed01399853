package tenant

import (
	"gorm.io/gorm"

	"github.com/yukikurage/tenant-task-api/internal/models"
)

// Projects limits a query on projects to one organization. Soft-deleted rows
// are removed by GORM's default scope.
func Projects(orgID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("projects.organization_id = ?", orgID)
	}
}

// Users limits a query on users to one organization.
func Users(orgID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("users.organization_id = ?", orgID)
	}
}

// Tasks limits a query on tasks to one organization and to projects that are
// still live. The project check keeps tasks of a soft-deleted project out of
// every read and write.
func Tasks(orgID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.organization_id = ?", orgID).
			Where("tasks.project_id IN (?)", activeProjectIDs(db, orgID))
	}
}

// ActivityLogs limits a query on activity logs to tasks whose project belongs
// to the organization. Logs of soft-deleted tasks stay visible.
func ActivityLogs(orgID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		taskIDs := db.Session(&gorm.Session{NewDB: true}).
			Unscoped().
			Model(&models.Task{}).
			Select("tasks.id").
			Joins("JOIN projects ON projects.id = tasks.project_id").
			Where("projects.organization_id = ?", orgID)
		return db.Where("activity_logs.task_id IN (?)", taskIDs)
	}
}

func activeProjectIDs(db *gorm.DB, orgID uint64) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Project{}).
		Select("projects.id").
		Scopes(Projects(orgID))
}
