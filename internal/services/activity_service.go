package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
)

// ActivityRecorder appends one audit row inside the caller's open
// transaction. It never reads, updates or deletes.
type ActivityRecorder interface {
	Record(ctx context.Context, tx *repository.Repositories, taskID, actorID uint64, changes models.ActivityChanges) error
}

type activityRecorder struct {
	now Clock
}

// NewActivityRecorder creates the default recorder.
func NewActivityRecorder(now Clock) ActivityRecorder {
	return &activityRecorder{now: clockOrDefault(now)}
}

func (r *activityRecorder) Record(ctx context.Context, tx *repository.Repositories, taskID, actorID uint64, changes models.ActivityChanges) error {
	payload, err := models.EncodeChanges(changes)
	if err != nil {
		return err
	}

	entry := &models.ActivityLog{
		TaskID:    taskID,
		UserID:    actorID,
		Action:    changes.Action(),
		Changes:   payload,
		Timestamp: r.now(),
	}
	if err := tx.Activity.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record %s activity: %w", changes.Action(), err)
	}
	return nil
}

// ActivityEntry is a stored log with its decoded changes.
type ActivityEntry struct {
	Log     models.ActivityLog
	Changes models.ActivityChanges
}

// ListActivityInput represents filters for listing activity logs
type ListActivityInput struct {
	TaskID    *uint64
	UserID    *uint64
	ProjectID *uint64
}

// ActivityService reads the audit trail.
type ActivityService struct {
	repos *repository.Repositories
}

// NewActivityService creates a new ActivityService
func NewActivityService(repos *repository.Repositories) *ActivityService {
	return &ActivityService{repos: repos}
}

// ListActivity returns the actor's organization logs, newest first.
func (s *ActivityService) ListActivity(ctx context.Context, actor tenant.Identity, input ListActivityInput) ([]ActivityEntry, error) {
	logs, err := s.repos.Activity.List(ctx, repository.ActivityFilter{
		OrganizationID: actor.OrganizationID,
		TaskID:         input.TaskID,
		UserID:         input.UserID,
		ProjectID:      input.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	entries := make([]ActivityEntry, len(logs))
	for i, log := range logs {
		changes, err := models.DecodeChanges(log.Action, log.Changes)
		if err != nil {
			return nil, fmt.Errorf("activity log %d: %w", log.ID, err)
		}
		entries[i] = ActivityEntry{Log: log, Changes: changes}
	}
	return entries, nil
}
