package models

import (
	"time"

	"gorm.io/datatypes"
)

// Client is an IPTV subscriber account.
type Client struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:varchar(100);not null;uniqueIndex"` // Line username, unique.
	Password string `gorm:"type:varchar(255);not null"`             // Line password, plaintext for the IPTV backend.

	IsTrial        bool            `gorm:"not null;default:false"` // Trial line flag.
	ExpDate        *datatypes.Date `gorm:"index"`                  // Subscription expiry date.
	MaxConnections int             `gorm:"not null;default:1"`     // Concurrent stream limit.

	CreatedBy string `gorm:"type:varchar(100)"` // Admin username that created the line.
	Bouquet   string `gorm:"type:text"`         // Channel bouquet.
	Notes     string `gorm:"type:text"`         // Free-form notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName returns the clients table name.
func (Client) TableName() string { return "clients" }
