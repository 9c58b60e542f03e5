package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog records a submission the backend refused.
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Endpoint  string         `gorm:"not null;index" json:"endpoint"`
	TaskID    int64          `gorm:"index" json:"task_id,omitempty"`
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
