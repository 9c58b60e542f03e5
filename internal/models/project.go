package models

import (
	"time"
)

type Project struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

// Task is a unit of work time is tracked against. ActHours is the
// cumulative tracked time the tracker reports on pause and stop.
type Task struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ProjectID int64     `gorm:"not null;index" json:"project_id"`
	ParentID  *int64    `gorm:"index" json:"parent_id"`
	Name      string    `gorm:"not null" json:"name"`
	TaskLevel int       `gorm:"not null;default:0" json:"task_level"`
	EstHours  float64   `gorm:"not null;default:0" json:"est_hours"`
	ActHours  float64   `gorm:"not null;default:0" json:"act_hours"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}
