package settings

// Setting keys and defaults.
const (
	// PanelNameKey is the settings key for the panel title.
	PanelNameKey = "panel_name"
	// AdminEmailKey is the settings key for the contact address.
	AdminEmailKey = "admin_email"
	// TimezoneKey is the settings key for the IANA zone used for "today".
	TimezoneKey = "timezone"
	// DefaultPanelName is the fallback panel title.
	DefaultPanelName = "TV Panel - SQL Edition"
	// DefaultAdminEmail is the fallback contact address.
	DefaultAdminEmail = "admin@example.com"
	// DefaultTimezone is the fallback panel time zone.
	DefaultTimezone = "Europe/Warsaw"
)

// Defaults returns the rows seeded into an empty settings table.
func Defaults() map[string]string {
	return map[string]string{
		PanelNameKey:  DefaultPanelName,
		AdminEmailKey: DefaultAdminEmail,
		TimezoneKey:   DefaultTimezone,
	}
}
