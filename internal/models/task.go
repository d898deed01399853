package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is the unit of work. Version is the optimistic lock token and only
// ever moves forward by one per successful mutation.
type Task struct {
	ID             uint64         `gorm:"primarykey"`
	Title          string         `gorm:"type:varchar(255);not null"`
	Description    *string        `gorm:"type:text"`
	Status         TaskStatus     `gorm:"type:varchar(20);not null;default:'TODO';index"`
	Priority       TaskPriority   `gorm:"type:varchar(10);not null;default:'MEDIUM'"`
	DueDate        *time.Time     `gorm:"index"`
	AssignedTo     *uint64        `gorm:"index"`
	ProjectID      uint64         `gorm:"not null;index"`
	OrganizationID uint64         `gorm:"not null;index"`
	Version        uint64         `gorm:"not null;default:0"`
	CreatedAt      time.Time      `gorm:"index"`
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`

	// Relations
	Assignee *User   `gorm:"foreignKey:AssignedTo"`
	Project  Project `gorm:"foreignKey:ProjectID"`
}

// AssigneeName returns the resolved assignee name, or "" when unassigned or not preloaded.
func (t *Task) AssigneeName() string {
	if t.Assignee == nil {
		return ""
	}
	return t.Assignee.Name
}
