package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MFAHandler handles TOTP enrolment for the current admin.
type MFAHandler struct {
	db    *gorm.DB
	clock Clock
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB, clock Clock) *MFAHandler {
	return &MFAHandler{db: db, clock: clock}
}

// PrepareTOTP generates a pending secret and returns its provisioning data.
// The secret takes effect after ConfirmTOTP.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, MsgUnauthorized)
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Select("id", "username").First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, MsgRecordNotFound)
			return
		}
		log.WithError(errFind).Error("load admin for totp")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}

	enrollment, errEnroll := security.NewTOTPEnrollment(admin.Username)
	if errEnroll != nil {
		log.WithError(errEnroll).Error("generate totp secret")
		fail(c, http.StatusInternalServerError, MsgServerError)
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_pending_secret": enrollment.Secret, "updated_at": h.clock.Now().UTC()}).Error; errUpdate != nil {
		log.WithError(errUpdate).Error("store pending totp secret")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"secret":      enrollment.Secret,
		"otpauth_url": enrollment.OTPAuthURL,
		"qr_image":    enrollment.QRImage,
	})
}

// ConfirmTOTP activates the pending secret when code matches it.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	fields, errBind := bindFields(c)
	if errBind != nil {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}
	code := strings.TrimSpace(fields["code"])
	if code == "" {
		fail(c, http.StatusBadRequest, MsgTOTPRequired)
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Select("id", "totp_pending_secret").First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, MsgRecordNotFound)
			return
		}
		log.WithError(errFind).Error("load admin for totp confirm")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	secret := strings.TrimSpace(admin.TOTPPendingSecret)
	if secret == "" {
		fail(c, http.StatusBadRequest, MsgTOTPNotPrepared)
		return
	}
	if !security.ValidateTOTPAt(code, secret, h.clock.Now()) {
		fail(c, http.StatusUnauthorized, MsgTOTPInvalid)
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "totp_pending_secret": "", "updated_at": h.clock.Now().UTC()}).Error; errUpdate != nil {
		log.WithError(errUpdate).Error("enable totp")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DisableTOTP clears the admin's TOTP secrets. An enabled secret must be
// confirmed with a current code first; a pending one is simply discarded.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	fields, errBind := bindFields(c)
	if errBind != nil {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}

	ctx := c.Request.Context()
	var admin models.Admin
	if errFind := h.db.WithContext(ctx).Select("id", "totp_secret").First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, MsgRecordNotFound)
			return
		}
		log.WithError(errFind).Error("load admin for totp disable")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	if secret := strings.TrimSpace(admin.TOTPSecret); secret != "" {
		code := strings.TrimSpace(fields["code"])
		if code == "" {
			fail(c, http.StatusBadRequest, MsgTOTPRequired)
			return
		}
		if !security.ValidateTOTPAt(code, secret, h.clock.Now()) {
			fail(c, http.StatusUnauthorized, MsgTOTPInvalid)
			return
		}
	}

	errUpdate := h.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{
			"totp_secret":         "",
			"totp_pending_secret": "",
			"updated_at":          h.clock.Now().UTC(),
		}).Error
	if errUpdate != nil {
		log.WithError(errUpdate).Error("disable totp")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
