package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates or updates every panel table.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.AdminSession{},
		&models.Client{},
		&models.Panel{},
		&models.App{},
		&models.ContactType{},
		&models.PaymentMethod{},
		&models.PricingConfig{},
		&models.Question{},
		&models.SmartTVActivation{},
		&models.Setting{},
		&models.ActivityLog{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}

// SeedOptions controls the first-run data.
type SeedOptions struct {
	AdminUsername string
	AdminPassword string
	Settings      map[string]string // Default values inserted when the key is missing.
}

// Seed inserts the default admin when none exists and any missing default settings.
func Seed(ctx context.Context, conn *gorm.DB, opts SeedOptions) error {
	if conn == nil {
		return errors.New("db: nil connection")
	}
	tx := conn.WithContext(ctx)

	var admins int64
	if errCount := tx.Model(&models.Admin{}).Count(&admins).Error; errCount != nil {
		return fmt.Errorf("db: count admins: %w", errCount)
	}
	username := strings.TrimSpace(opts.AdminUsername)
	if admins == 0 && username != "" && opts.AdminPassword != "" {
		hash, errHash := security.HashPassword(opts.AdminPassword)
		if errHash != nil {
			return fmt.Errorf("db: hash admin password: %w", errHash)
		}
		if errCreate := tx.Create(&models.Admin{Username: username, Password: hash}).Error; errCreate != nil {
			return fmt.Errorf("db: create admin: %w", errCreate)
		}
		log.WithField("username", username).Warn("created default admin account, change its password")
	}

	for key, value := range opts.Settings {
		row := models.Setting{SettingKey: key, SettingValue: value}
		if errCreate := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("db: seed setting %s: %w", key, errCreate)
		}
	}
	return nil
}
