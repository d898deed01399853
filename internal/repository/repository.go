package repository

import (
	"context"
	"time"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/utils"
	"gorm.io/gorm"
)

// TaskRepository defines the interface for task data access. Every method is
// scoped to one organization.
type TaskRepository interface {
	// Create inserts a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a live task with its assignee resolved
	FindByID(ctx context.Context, orgID, id uint64) (*models.Task, error)

	// List retrieves tasks of one project with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// CompareAndSwap applies fields and bumps the version only when the stored
	// version equals expectedVersion. Zero rows affected means the swap lost.
	CompareAndSwap(ctx context.Context, orgID, id, expectedVersion uint64, fields map[string]any) (int64, error)

	// SoftDelete marks a live task as deleted
	SoftDelete(ctx context.Context, orgID, id uint64, at time.Time) (int64, error)

	// Snapshots returns the analytics projection of live tasks
	Snapshots(ctx context.Context, orgID uint64, projectID *uint64) ([]TaskSnapshot, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationID uint64
	ProjectID      uint64
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssignedTo     *uint64
	Search         string
	SortBy         TaskSortField
	Ascending      bool
	Pagination     utils.PaginationParams
}

type TaskSortField string

const (
	SortByCreatedAt TaskSortField = "created_at"
	SortByDueDate   TaskSortField = "due_date"
)

// TaskSnapshot is the narrow row the analytics rollups read.
type TaskSnapshot struct {
	AssignedTo  *uint64
	Status      models.TaskStatus
	DueDate     *time.Time
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a live project of the organization
	FindByID(ctx context.Context, orgID, id uint64) (*models.Project, error)

	// List lists live projects with task counters, newest first
	List(ctx context.Context, orgID uint64, now time.Time) ([]ProjectSummary, error)

	// Update applies fields to a live project
	Update(ctx context.Context, orgID, id uint64, fields map[string]any) (int64, error)

	// SoftDelete marks a live project as deleted
	SoftDelete(ctx context.Context, orgID, id uint64) (int64, error)

	// ReplaceMembers swaps the project's member set
	ReplaceMembers(ctx context.Context, projectID uint64, userIDs []uint64) error
}

// ProjectSummary is a project with its live task counters
type ProjectSummary struct {
	models.Project
	TaskCount    int64
	OverdueCount int64
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a live user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a live user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// ExistsByEmail reports whether any user, deleted or not, holds the email
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ListByOrganization lists live users of an organization ordered by name
	ListByOrganization(ctx context.Context, orgID uint64) ([]models.User, error)

	// FilterInOrganization returns the subset of ids that are live users of the organization
	FilterInOrganization(ctx context.Context, orgID uint64, ids []uint64) ([]uint64, error)
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(ctx context.Context, code string) (*models.Organization, error)
}

// ActivityRepository appends and reads activity logs. There is no update or delete.
type ActivityRepository interface {
	// Append inserts one log row
	Append(ctx context.Context, entry *models.ActivityLog) error

	// List reads logs of the organization, newest first
	List(ctx context.Context, filter ActivityFilter) ([]models.ActivityLog, error)
}

// ActivityFilter holds filtering options for listing activity logs
type ActivityFilter struct {
	OrganizationID uint64
	TaskID         *uint64
	UserID         *uint64
	ProjectID      *uint64
}

// Repositories groups the repositories that share one connection or one transaction.
type Repositories struct {
	Tasks         TaskRepository
	Projects      ProjectRepository
	Users         UserRepository
	Organizations OrganizationRepository
	Activity      ActivityRepository

	db        *gorm.DB
	txTimeout time.Duration
}

// New builds the repositories on top of an explicitly owned pool handle.
// txTimeout bounds every transaction; zero disables the bound.
func New(db *gorm.DB, txTimeout time.Duration) *Repositories {
	return &Repositories{
		Tasks:         NewTaskRepository(db),
		Projects:      NewProjectRepository(db),
		Users:         NewUserRepository(db),
		Organizations: NewOrganizationRepository(db),
		Activity:      NewActivityRepository(db),
		db:            db,
		txTimeout:     txTimeout,
	}
}

// Transaction runs fn inside one database transaction, committing when fn
// returns nil and rolling back otherwise. The transaction is detached from
// the caller's cancellation so it always ends in commit or rollback; only
// the configured timeout can cut it short. fn must use the ctx it is given.
func (r *Repositories) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Repositories) error) error {
	ctx = context.WithoutCancel(ctx)
	if r.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.txTimeout)
		defer cancel()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, New(tx, 0))
	})
}
