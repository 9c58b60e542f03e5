package models

import "time"

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

// TaskSummary aggregates the blocks delivered for one task.
type TaskSummary struct {
	ProjectID              int64   `json:"project_id"`
	TaskID                 int64   `json:"task_id"`
	TaskName               string  `json:"task_name,omitempty"`
	Blocks                 int     `json:"blocks"`
	RecordedMinutes        int     `json:"recorded_minutes"`
	ActiveMinutes          int     `json:"active_minutes"`
	MeanActivityPercentage float64 `json:"mean_activity_percentage"`
	TotalHours             float64 `json:"total_hours"`
}

// AppSummary counts the active minutes spent in one application window.
type AppSummary struct {
	AppName    string  `json:"app_name"`
	Minutes    int     `json:"minutes"`
	TotalHours float64 `json:"total_hours"`
	Percentage float64 `json:"percentage,omitempty"`
}

type Report struct {
	Period                 ReportPeriod  `json:"period"`
	Tasks                  []TaskSummary `json:"tasks"`
	Apps                   []AppSummary  `json:"apps"`
	TotalBlocks            int           `json:"total_blocks"`
	RecordedMinutes        int           `json:"recorded_minutes"`
	ActiveMinutes          int           `json:"active_minutes"`
	MeanActivityPercentage float64       `json:"mean_activity_percentage"`
	TotalHours             float64       `json:"total_hours"`
	GeneratedAt            time.Time     `json:"generated_at"`
}
