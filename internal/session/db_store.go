package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/security"
	"gorm.io/gorm"
)

// DBStore keeps sessions in the admin_sessions table.
type DBStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDBStore constructs a DBStore.
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new session and returns its token.
func (s *DBStore) Create(ctx context.Context, p Principal, expiresAt time.Time, meta Meta) (string, error) {
	if !p.Valid() {
		return "", ErrInvalidPrincipal
	}
	token, err := security.NewSessionToken()
	if err != nil {
		return "", err
	}
	row := models.AdminSession{
		TokenHash: security.HashToken(token),
		AdminID:   p.AdminID,
		Username:  p.Username,
		IP:        truncate(meta.IP, 64),
		UserAgent: truncate(meta.UserAgent, 255),
		ExpiresAt: expiresAt.UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return "", errCreate
	}
	return token, nil
}

// Lookup resolves a token to its principal.
func (s *DBStore) Lookup(ctx context.Context, token string) (Principal, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, false, nil
	}
	var row models.AdminSession
	errFind := s.db.WithContext(ctx).
		Where("token_hash = ?", security.HashToken(token)).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Principal{}, false, nil
		}
		return Principal{}, false, errFind
	}
	if row.RevokedAt != nil || !s.now().Before(row.ExpiresAt) {
		return Principal{}, false, nil
	}
	return Principal{AdminID: row.AdminID, Username: row.Username}, true, nil
}

// Revoke marks a session as ended. Unknown tokens are ignored.
func (s *DBStore) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	now := s.now()
	return s.db.WithContext(ctx).Model(&models.AdminSession{}).
		Where("token_hash = ? AND revoked_at IS NULL", security.HashToken(token)).
		Update("revoked_at", &now).Error
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
func (s *DBStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at < ?", cutoff.UTC(), cutoff.UTC()).
		Delete(&models.AdminSession{})
	return res.RowsAffected, res.Error
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
