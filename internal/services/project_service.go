package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound     = newError(ErrNotFound, "project not found")
	ErrProjectNameRequired = newError(ErrValidation, "project name is required")
	ErrNoValidMembers      = newError(ErrValidation, "none of the users belong to this organization")
	ErrAdminRequired       = newError(ErrForbidden, "admin role required")
)

// ProjectService handles project business logic
type ProjectService struct {
	repos *repository.Repositories
	now   Clock
}

// NewProjectService creates a new ProjectService
func NewProjectService(repos *repository.Repositories, now Clock) *ProjectService {
	return &ProjectService{repos: repos, now: clockOrDefault(now)}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string
	Description *string
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// ListProjects returns live projects with their task counters
func (s *ProjectService) ListProjects(ctx context.Context, actor tenant.Identity) ([]repository.ProjectSummary, error) {
	projects, err := s.repos.Projects.List(ctx, actor.OrganizationID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a live project of the actor's organization
func (s *ProjectService) GetProject(ctx context.Context, actor tenant.Identity, projectID uint64) (*models.Project, error) {
	return findProject(ctx, s.repos, actor.OrganizationID, projectID)
}

// CreateProject creates a project in the actor's organization
func (s *ProjectService) CreateProject(ctx context.Context, actor tenant.Identity, input CreateProjectInput) (*models.Project, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	project := &models.Project{
		Name:           name,
		Description:    input.Description,
		OrganizationID: actor.OrganizationID,
	}
	if err := s.repos.Projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// UpdateProject applies the provided fields. No fields returns the project as is.
func (s *ProjectService) UpdateProject(ctx context.Context, actor tenant.Identity, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProjectNameRequired
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}

	var project *models.Project
	err := s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		if len(fields) > 0 {
			affected, err := tx.Projects.Update(ctx, actor.OrganizationID, projectID, fields)
			if err != nil {
				return fmt.Errorf("failed to update project: %w", err)
			}
			if affected == 0 {
				return ErrProjectNotFound
			}
		}

		var err error
		project, err = findProject(ctx, tx, actor.OrganizationID, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return project, nil
}

// DeleteProject soft-deletes a project. Its tasks drop out of every scoped query.
func (s *ProjectService) DeleteProject(ctx context.Context, actor tenant.Identity, projectID uint64) error {
	if !actor.IsAdmin() {
		return ErrAdminRequired
	}

	affected, err := s.repos.Projects.SoftDelete(ctx, actor.OrganizationID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// AssignMembers replaces the project's members with the given users of the
// actor's organization. Ids from other organizations are dropped.
func (s *ProjectService) AssignMembers(ctx context.Context, actor tenant.Identity, projectID uint64, userIDs []uint64) ([]uint64, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}

	var assigned []uint64
	err := s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		if _, err := findProject(ctx, tx, actor.OrganizationID, projectID); err != nil {
			return err
		}
		if len(userIDs) == 0 {
			assigned = []uint64{}
			return nil
		}

		valid, err := tx.Users.FilterInOrganization(ctx, actor.OrganizationID, userIDs)
		if err != nil {
			return fmt.Errorf("failed to check users: %w", err)
		}
		if len(valid) == 0 {
			return ErrNoValidMembers
		}

		if err := tx.Projects.ReplaceMembers(ctx, projectID, valid); err != nil {
			return fmt.Errorf("failed to assign users: %w", err)
		}
		assigned = valid
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assigned, nil
}

func findProject(ctx context.Context, repos *repository.Repositories, orgID, projectID uint64) (*models.Project, error) {
	project, err := repos.Projects.FindByID(ctx, orgID, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}
