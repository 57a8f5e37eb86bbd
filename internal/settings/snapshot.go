package settings

import (
	"strings"
	"time"
)

// Snapshot is a point-in-time copy of the settings table.
type Snapshot struct {
	updatedAt time.Time
	values    map[string]string
}

// NewSnapshot builds a snapshot from raw key/value pairs.
func NewSnapshot(updatedAt time.Time, values map[string]string) Snapshot {
	next := make(map[string]string, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = v
	}
	return Snapshot{updatedAt: updatedAt.UTC(), values: next}
}

// UpdatedAt returns the newest row timestamp.
func (s Snapshot) UpdatedAt() time.Time { return s.updatedAt }

// Value returns the raw value for key.
func (s Snapshot) Value(key string) (string, bool) {
	v, ok := s.values[strings.TrimSpace(key)]
	return v, ok
}

// ValueOr returns the trimmed value for key, or def when missing or blank.
func (s Snapshot) ValueOr(key, def string) string {
	if v, ok := s.Value(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// PanelName returns the configured panel title.
func (s Snapshot) PanelName() string { return s.ValueOr(PanelNameKey, DefaultPanelName) }

// AdminEmail returns the configured contact address.
func (s Snapshot) AdminEmail() string { return s.ValueOr(AdminEmailKey, DefaultAdminEmail) }

// Location resolves the timezone setting. fallback is used when the row is
// missing or names an unknown zone; a nil fallback means UTC.
func (s Snapshot) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	name := s.ValueOr(TimezoneKey, "")
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}
