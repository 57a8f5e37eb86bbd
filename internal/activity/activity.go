// Package activity appends best-effort audit entries to activity_log.
package activity

import (
	"context"
	"fmt"

	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/schema"
	"github.com/tvpanel/tvpanel/internal/session"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Action codes.
const (
	ActionAddClient     = "ADD_CLIENT"
	ActionExtendLicense = "EXTEND_LICENSE"
	ActionLogin         = "LOGIN"
	ActionLogout        = "LOGOUT"
)

// UpdateAction returns the action code for a field update on t.
func UpdateAction(t schema.Table) string { return "UPDATE_" + string(t) }

// DeleteAction returns the action code for a delete on t.
func DeleteAction(t schema.Table) string { return "DELETE_" + string(t) }

// CreateAction returns the action code for a generic insert into t.
func CreateAction(t schema.Table) string { return "CREATE_" + string(t) }

// ImportAction returns the action code for a bulk import into t.
func ImportAction(t schema.Table) string { return "IMPORT_" + string(t) }

// UpdateDetails describes a field update.
func UpdateDetails(field string, id uint64) string {
	return fmt.Sprintf("Updated %s for ID %d", field, id)
}

// DeleteDetails describes a delete.
func DeleteDetails(id uint64) string { return fmt.Sprintf("Deleted record ID %d", id) }

// AddClientDetails describes a created client.
func AddClientDetails(username string, id uint64) string {
	return fmt.Sprintf("Added client: %s (ID: %d)", username, id)
}

// ExtendDetails describes a licence extension.
func ExtendDetails(username string, id uint64, days int, expDate string) string {
	return fmt.Sprintf("Extended client %s (ID: %d) by %d days to %s", username, id, days, expDate)
}

// ImportDetails describes a bulk import.
func ImportDetails(count int) string { return fmt.Sprintf("Imported %d records", count) }

// Recorder writes activity entries for the principal found in the context.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one entry. Requests without a principal are skipped and
// write failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, action, details string) {
	if r == nil || r.db == nil {
		return
	}
	p, ok := session.PrincipalFromContext(ctx)
	if !ok {
		return
	}
	entry := models.ActivityLog{UserID: p.AdminID, Action: action, Details: details}
	if errCreate := r.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		log.WithError(errCreate).WithFields(log.Fields{
			"action":   action,
			"admin_id": p.AdminID,
		}).Warn("activity log write failed")
	}
}
