package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Description    *string        `gorm:"type:text" json:"description"`
	OrganizationID uint64         `gorm:"not null;index" json:"organizationId"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Organization Organization    `gorm:"foreignKey:OrganizationID" json:"-"`
	Members      []ProjectMember `gorm:"foreignKey:ProjectID" json:"-"`
	Tasks        []Task          `gorm:"foreignKey:ProjectID" json:"-"`
}

// ProjectMember links a user to a project inside the same organization.
type ProjectMember struct {
	ProjectID uint64    `gorm:"primarykey" json:"projectId"`
	UserID    uint64    `gorm:"primarykey" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"-"`
}

func (ProjectMember) TableName() string {
	return "project_users"
}
