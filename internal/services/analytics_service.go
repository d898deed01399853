package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
)

// UserStats are the rollups of the tasks assigned to one user
type UserStats struct {
	UserID                 uint64
	UserName               string
	CompletedTasks         int64
	PendingTasks           int64
	OverdueTasks           int64
	AvgCompletionTimeHours *float64
}

// ScopeStats are the rollups over an organization or a single project
type ScopeStats struct {
	TotalTasks             int64
	CompletedTasks         int64
	PendingTasks           int64
	OverdueTasks           int64
	AvgCompletionTimeHours *float64
}

// Analytics is the full report
type Analytics struct {
	UserStats    []UserStats
	ProjectStats ScopeStats
}

// AnalyticsService computes read-only rollups over committed task state
type AnalyticsService struct {
	repos *repository.Repositories
	now   Clock
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(repos *repository.Repositories, now Clock) *AnalyticsService {
	return &AnalyticsService{repos: repos, now: clockOrDefault(now)}
}

// GetAnalytics reports on the actor's organization, or on one of its
// projects when projectID is set. Every live user of the organization is
// listed, with zeros when nothing is assigned.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, actor tenant.Identity, projectID *uint64) (*Analytics, error) {
	var (
		users     []models.User
		snapshots []repository.TaskSnapshot
	)

	// One transaction so users and tasks come from the same snapshot.
	err := s.repos.Transaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		var err error
		if users, err = tx.Users.ListByOrganization(ctx, actor.OrganizationID); err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		if snapshots, err = tx.Tasks.Snapshots(ctx, actor.OrganizationID, projectID); err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	scope := rollup{}
	perUser := make(map[uint64]*rollup, len(users))
	for _, u := range users {
		perUser[u.ID] = &rollup{}
	}

	for _, t := range snapshots {
		scope.add(t, now)
		if t.AssignedTo == nil {
			continue
		}
		if r, ok := perUser[*t.AssignedTo]; ok {
			r.add(t, now)
		}
	}

	report := &Analytics{
		UserStats: make([]UserStats, len(users)),
		ProjectStats: ScopeStats{
			TotalTasks:             scope.total,
			CompletedTasks:         scope.completed,
			PendingTasks:           scope.pending,
			OverdueTasks:           scope.overdue,
			AvgCompletionTimeHours: scope.avgHours(),
		},
	}
	for i, u := range users {
		r := perUser[u.ID]
		report.UserStats[i] = UserStats{
			UserID:                 u.ID,
			UserName:               u.Name,
			CompletedTasks:         r.completed,
			PendingTasks:           r.pending,
			OverdueTasks:           r.overdue,
			AvgCompletionTimeHours: r.avgHours(),
		}
	}

	return report, nil
}

type rollup struct {
	total     int64
	completed int64
	pending   int64
	overdue   int64

	timed      int64
	totalHours float64
}

// add counts one task. Anything not DONE is pending, including an empty status.
func (r *rollup) add(t repository.TaskSnapshot, now time.Time) {
	r.total++
	if t.Status == models.TaskStatusDone {
		r.completed++
	} else {
		r.pending++
		if t.DueDate != nil && t.DueDate.Before(now) {
			r.overdue++
		}
	}

	if t.CompletedAt != nil {
		r.timed++
		r.totalHours += t.CompletedAt.Sub(t.CreatedAt).Hours()
	}
}

func (r *rollup) avgHours() *float64 {
	if r.timed == 0 {
		return nil
	}
	avg := r.totalHours / float64(r.timed)
	return &avg
}
