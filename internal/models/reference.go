package models

import "time"

// Panel is a reseller panel the admin has access to.
type Panel struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`   // Primary key.
	Name     string `gorm:"type:varchar(255);not null"` // Display name.
	URL      string `gorm:"type:varchar(500);not null"` // Panel address.
	Username string `gorm:"type:varchar(100)"`          // Reseller login.
	Password string `gorm:"type:varchar(255)"`          // Reseller password.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName returns the panels table name.
func (Panel) TableName() string { return "panels" }

// App is a player application offered to clients.
type App struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`   // Primary key.
	Name        string `gorm:"type:varchar(255);not null"` // Display name.
	PackageName string `gorm:"type:varchar(255)"`          // Android package name.
	AppCode     string `gorm:"type:varchar(100)"`          // Downloader code.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName returns the apps table name.
func (App) TableName() string { return "apps" }

// ContactType is a way a client can be reached.
type ContactType struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`   // Primary key.
	Name string `gorm:"type:varchar(100);not null"` // Display name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName returns the contact types table name.
func (ContactType) TableName() string { return "contact_types" }

// PaymentMethod is an accepted way of paying.
type PaymentMethod struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`   // Primary key.
	Name string `gorm:"type:varchar(100);not null"` // Display name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName returns the payment methods table name.
func (PaymentMethod) TableName() string { return "payment_methods" }

// PricingConfig is one entry of the price list.
type PricingConfig struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement"`              // Primary key.
	Name     string  `gorm:"type:varchar(255);not null"`            // Plan name.
	Price    float64 `gorm:"type:decimal(10,2);not null;default:0"` // Plan price.
	Currency string  `gorm:"type:varchar(10);default:'PLN'"`        // ISO currency code.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName keeps the singular legacy table name.
func (PricingConfig) TableName() string { return "pricing_config" }

// Question is a FAQ entry.
type Question struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	Question string `gorm:"type:text;not null"`       // Question text.
	Answer   string `gorm:"type:text;not null"`       // Answer text.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName returns the questions table name.
func (Question) TableName() string { return "questions" }

// SmartTVActivation records a purchased Smart TV app activation.
type SmartTVActivation struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement"`               // Primary key.
	ActivationID string  `gorm:"type:varchar(100);not null;uniqueIndex"` // Device activation code.
	AppName      string  `gorm:"type:varchar(255)"`                      // Activated application.
	AppPrice     float64 `gorm:"type:decimal(10,2);not null;default:0"`  // Price paid.
	Currency     string  `gorm:"type:varchar(10);default:'PLN'"`         // ISO currency code.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName returns the activations table name.
func (SmartTVActivation) TableName() string { return "smart_tv_activations" }
