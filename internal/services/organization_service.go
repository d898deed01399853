package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"gorm.io/gorm"
)

var ErrOrganizationNotFound = newError(ErrNotFound, "organization not found")

// OrganizationService provides read access to the actor's organization.
type OrganizationService struct {
	repos *repository.Repositories
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(repos *repository.Repositories) *OrganizationService {
	return &OrganizationService{repos: repos}
}

// GetOrganization returns the actor's organization and its live members.
func (s *OrganizationService) GetOrganization(ctx context.Context, actor tenant.Identity) (*models.Organization, []models.User, error) {
	org, err := s.repos.Organizations.FindByID(ctx, actor.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrganizationNotFound
		}
		return nil, nil, fmt.Errorf("failed to find organization: %w", err)
	}

	members, err := s.ListUsers(ctx, actor)
	if err != nil {
		return nil, nil, err
	}

	return org, members, nil
}

// ListUsers returns live users of the actor's organization ordered by name.
func (s *OrganizationService) ListUsers(ctx context.Context, actor tenant.Identity) ([]models.User, error) {
	users, err := s.repos.Users.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
