package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivityLog is one delivered activity block.
type ActivityLog struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	ProjectID          int64          `gorm:"not null;index" json:"projectId"`
	TaskID             int64          `gorm:"not null;index" json:"taskId"`
	Timestamp          time.Time      `gorm:"not null;index" json:"timestamp"`
	Screenshot         *string        `gorm:"type:text" json:"screenshot,omitempty"`
	ActivityJSON       string         `gorm:"type:text;not null" json:"activity_json"`
	ActiveMinutes      int            `gorm:"not null;default:0" json:"active_minutes"`
	ActivityPercentage int            `gorm:"not null;default:0" json:"activity_percentage"`
	CreatedAt          time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}
