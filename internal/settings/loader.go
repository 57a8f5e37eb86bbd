package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tvpanel/tvpanel/internal/models"
	"gorm.io/gorm"
)

// Load reads every settings row into a Snapshot.
func Load(ctx context.Context, db *gorm.DB) (Snapshot, error) {
	if db == nil {
		return Snapshot{}, errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("setting_key", "setting_value", "updated_at").
		Order("setting_key ASC").
		Find(&rows).Error; errFind != nil {
		return Snapshot{}, errFind
	}

	values := make(map[string]string, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.SettingKey)
		if key == "" {
			continue
		}
		values[key] = row.SettingValue
		if row.UpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt
		}
	}
	return NewSnapshot(maxUpdatedAt, values), nil
}
