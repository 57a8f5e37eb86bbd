package models

import "time"

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`   // Primary key.
	UserID  uint64 `gorm:"not null;index"`             // Acting admin.
	Action  string `gorm:"type:varchar(100);not null"` // Action code, e.g. UPDATE_clients.
	Details string `gorm:"type:text"`                  // Human readable detail.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Event time.
}

// TableName keeps the singular legacy table name.
func (ActivityLog) TableName() string { return "activity_log" }
