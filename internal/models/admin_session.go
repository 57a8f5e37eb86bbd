package models

import "time"

// AdminSession is a server-side login session. Only the token hash is stored.
type AdminSession struct {
	TokenHash string `gorm:"type:varchar(64);primaryKey"` // SHA-256 hex of the cookie value.

	AdminID  uint64 `gorm:"not null;index"`             // Owning admin.
	Username string `gorm:"type:varchar(100);not null"` // Admin username at login time.

	IP        string `gorm:"type:varchar(64)"`  // Client address at login.
	UserAgent string `gorm:"type:varchar(255)"` // Client user agent at login.

	ExpiresAt time.Time  `gorm:"not null;index"`          // Hard expiry.
	RevokedAt *time.Time `gorm:"index"`                   // Set on logout.
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName returns the sessions table name.
func (AdminSession) TableName() string { return "admin_sessions" }
