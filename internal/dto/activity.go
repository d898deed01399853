package dto

import (
	"time"

	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/services"
)

// ActivityDTO represents one activity log entry
type ActivityDTO struct {
	ID        uint64                `json:"id"`
	TaskID    uint64                `json:"taskId"`
	TaskTitle string                `json:"taskTitle,omitempty"`
	UserID    uint64                `json:"userId"`
	UserName  string                `json:"userName,omitempty"`
	Action    models.ActivityAction `json:"action"`
	Changes   any                   `json:"changes"`
	Timestamp time.Time             `json:"timestamp"`
}

// ToActivityDTOs converts decoded activity entries
func ToActivityDTOs(entries []services.ActivityEntry) []ActivityDTO {
	out := make([]ActivityDTO, len(entries))
	for i, entry := range entries {
		out[i] = ActivityDTO{
			ID:        entry.Log.ID,
			TaskID:    entry.Log.TaskID,
			TaskTitle: entry.Log.Task.Title,
			UserID:    entry.Log.UserID,
			UserName:  entry.Log.User.Name,
			Action:    entry.Log.Action,
			Changes:   entry.Changes,
			Timestamp: entry.Log.Timestamp,
		}
	}
	return out
}
