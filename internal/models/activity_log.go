package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityAction string

const (
	ActivityCreated       ActivityAction = "CREATED"
	ActivityUpdated       ActivityAction = "UPDATED"
	ActivityStatusChanged ActivityAction = "STATUS_CHANGED"
	ActivityDeleted       ActivityAction = "DELETED"
)

var ErrActivityLogImmutable = errors.New("activity logs are append-only")

// ActivityLog is one audit entry for a task mutation. Its organization is
// derived through task -> project.
type ActivityLog struct {
	ID        uint64         `gorm:"primarykey"`
	TaskID    uint64         `gorm:"not null;index"`
	UserID    uint64         `gorm:"not null;index"`
	Action    ActivityAction `gorm:"type:varchar(20);not null"`
	Changes   datatypes.JSON
	Timestamp time.Time `gorm:"not null;index"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID"`
	User User `gorm:"foreignKey:UserID"`
}

func (a *ActivityLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}

func (a *ActivityLog) BeforeDelete(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}
