package models

import "time"

// Setting stores one panel setting as a key/value row.
type Setting struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`               // Primary key.
	SettingKey   string `gorm:"type:varchar(100);not null;uniqueIndex"` // Setting name.
	SettingValue string `gorm:"type:text"`                              // Raw value.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName returns the settings table name.
func (Setting) TableName() string { return "settings" }
