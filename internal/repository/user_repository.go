package repository

import (
	"context"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Organization").Create(user).Error
}

// FindByID finds a live user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "users.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a live user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail reports whether any user, deleted or not, holds the email
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// ListByOrganization lists live users of an organization ordered by name
func (r *GormUserRepository) ListByOrganization(ctx context.Context, orgID uint64) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Users(orgID)).
		Order("users.name ASC").
		Order("users.id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FilterInOrganization returns the subset of ids that are live users of the organization
func (r *GormUserRepository) FilterInOrganization(ctx context.Context, orgID uint64, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return []uint64{}, nil
	}

	var found []uint64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Scopes(tenant.Users(orgID)).
		Where("users.id IN ?", ids).
		Order("users.id ASC").
		Pluck("users.id", &found).Error
	return found, err
}
