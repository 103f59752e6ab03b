package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one user-visible action for after-the-fact inspection.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"size:64;index" json:"trace_id"`
	UserID     *int64         `gorm:"index" json:"user_id"`
	Action     string         `gorm:"size:64;index" json:"action"`
	Request    datatypes.JSON `json:"request"`
	Response   datatypes.JSON `json:"response"`
	Error      string         `gorm:"size:255" json:"error"`
	IP         string         `gorm:"size:45" json:"ip"`
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
