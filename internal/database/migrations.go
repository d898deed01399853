package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type compositeIndex struct {
	table   string
	name    string
	columns []string
}

// Composite indexes used by the tenant predicates and list queries.
var compositeIndexes = []compositeIndex{
	{"tasks", "idx_tasks_org_project", []string{"organization_id", "project_id", "deleted_at"}},
	{"tasks", "idx_tasks_project_created", []string{"project_id", "created_at"}},
	{"projects", "idx_projects_org_deleted", []string{"organization_id", "deleted_at"}},
	{"activity_logs", "idx_activity_logs_task_timestamp", []string{"task_id", "timestamp"}},
}

// AddIndexes creates composite indexes that AutoMigrate cannot express from tags.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
