package models

import "time"

// Admin represents a panel administrator account.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:varchar(100);not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:varchar(255);not null"`             // Bcrypt hash.

	TOTPSecret        string `gorm:"type:varchar(64)"` // Confirmed TOTP secret; empty when MFA is off.
	TOTPPendingSecret string `gorm:"type:varchar(64)"` // Secret awaiting confirmation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName keeps the legacy table name.
func (Admin) TableName() string { return "admin_users" }
