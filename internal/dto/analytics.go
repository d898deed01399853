package dto

import "github.com/yukikurage/tenant-task-api/internal/services"

type UserStatsDTO struct {
	UserID                 uint64   `json:"userId"`
	UserName               string   `json:"userName"`
	CompletedTasks         int64    `json:"completedTasks"`
	PendingTasks           int64    `json:"pendingTasks"`
	OverdueTasks           int64    `json:"overdueTasks"`
	AvgCompletionTimeHours *float64 `json:"avgCompletionTimeHours"`
}

type ProjectStatsDTO struct {
	TotalTasks             int64    `json:"totalTasks"`
	CompletedTasks         int64    `json:"completedTasks"`
	PendingTasks           int64    `json:"pendingTasks"`
	OverdueTasks           int64    `json:"overdueTasks"`
	AvgCompletionTimeHours *float64 `json:"avgCompletionTimeHours"`
}

// AnalyticsResponse is the analytics report
type AnalyticsResponse struct {
	UserStats    []UserStatsDTO  `json:"userStats"`
	ProjectStats ProjectStatsDTO `json:"projectStats"`
}

// ToAnalyticsResponse converts the analytics report
func ToAnalyticsResponse(report *services.Analytics) AnalyticsResponse {
	users := make([]UserStatsDTO, len(report.UserStats))
	for i, s := range report.UserStats {
		users[i] = UserStatsDTO(s)
	}

	return AnalyticsResponse{
		UserStats:    users,
		ProjectStats: ProjectStatsDTO(report.ProjectStats),
	}
}
