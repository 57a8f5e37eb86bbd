package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvpanel/tvpanel/internal/activity"
	"github.com/tvpanel/tvpanel/internal/metrics"
	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/security"
	"github.com/tvpanel/tvpanel/internal/session"
	"github.com/tvpanel/tvpanel/internal/util"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SessionOptions configures login sessions and bearer tokens.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	JWTSecret  string // Empty disables JWT issuance.
	JWTTTL     time.Duration
}

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	db       *gorm.DB
	sessions session.Store
	opts     SessionOptions
	activity *activity.Recorder
	clock    Clock
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, sessions session.Store, opts SessionOptions, recorder *activity.Recorder, clock Clock) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions, opts: opts, activity: recorder, clock: clock}
}

// Login authenticates an admin, creates a session and sets the session cookie.
// Admins with TOTP enabled must also send totp_code.
func (h *AuthHandler) Login(c *gin.Context) {
	fields, errBind := bindFields(c)
	if errBind != nil {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}
	username := strings.TrimSpace(fields["username"])
	password := fields["password"]
	if username == "" || password == "" {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}

	ctx := c.Request.Context()
	var admin models.Admin
	if errFind := h.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			log.WithError(errFind).Error("load admin for login")
			metrics.ObserveLogin(metrics.OutcomeError)
			fail(c, http.StatusInternalServerError, MsgDatabaseError)
			return
		}
		rejectLogin(c, fields)
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		rejectLogin(c, fields)
		return
	}

	if strings.TrimSpace(admin.TOTPSecret) != "" {
		code := strings.TrimSpace(fields["totp_code"])
		if code == "" {
			metrics.ObserveLogin(metrics.OutcomeRejected)
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": MsgTOTPRequired, "totp_required": true})
			return
		}
		if !security.ValidateTOTPAt(code, admin.TOTPSecret, h.clock.Now()) {
			metrics.ObserveLogin(metrics.OutcomeRejected)
			fail(c, http.StatusUnauthorized, MsgTOTPInvalid)
			return
		}
	}

	if security.NeedsRehash(admin.Password) {
		h.upgradePasswordHash(c, admin.ID, password)
	}

	p := session.Principal{AdminID: admin.ID, Username: admin.Username}
	expiresAt := h.clock.Now().Add(h.opts.TTL)
	token, errCreate := h.sessions.Create(ctx, p, expiresAt, session.Meta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	if errCreate != nil {
		log.WithError(errCreate).WithField("admin_id", admin.ID).Error("create admin session")
		metrics.ObserveLogin(metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgServerError)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, token, int(h.opts.TTL.Seconds()), "/", "", h.opts.Secure, true)

	resp := gin.H{
		"success": true,
		"token":   token,
		"admin":   adminView(admin),
	}
	if h.opts.JWTSecret != "" {
		accessToken, errToken := security.GenerateAdminToken(h.opts.JWTSecret, admin.ID, admin.Username, h.opts.JWTTTL)
		if errToken != nil {
			log.WithError(errToken).Warn("issue admin jwt")
		} else {
			resp["access_token"] = accessToken
			resp["expires_in"] = int64(h.opts.JWTTTL.Seconds())
		}
	}

	h.activity.Record(session.WithPrincipal(ctx, p), activity.ActionLogin, "Logged in from "+c.ClientIP())
	metrics.ObserveLogin(metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, resp)
}

// upgradePasswordHash rewrites a low-cost hash after a successful login.
// Failures are logged and the login proceeds.
func (h *AuthHandler) upgradePasswordHash(c *gin.Context, adminID uint64, password string) {
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		log.WithError(errHash).WithField("admin_id", adminID).Warn("rehash admin password")
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Update("password", hash).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("admin_id", adminID).Warn("store rehashed admin password")
	}
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if token := RequestSessionToken(c, h.opts.CookieName); token != "" {
		if errRevoke := h.sessions.Revoke(ctx, token); errRevoke != nil {
			log.WithError(errRevoke).Warn("revoke admin session")
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, "", -1, "/", "", h.opts.Secure, true)
	h.activity.Record(ctx, activity.ActionLogout, "Logged out")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the authenticated admin.
func (h *AuthHandler) Me(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			fail(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		log.WithError(errFind).Error("load current admin")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admin": adminView(admin)})
}

// RequestSessionToken returns the session token carried by the cookie or by
// an Authorization bearer header holding a session token.
func RequestSessionToken(c *gin.Context, cookieName string) string {
	if cookie, errCookie := c.Cookie(cookieName); errCookie == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	if bearer := BearerToken(c); security.IsSessionToken(bearer) {
		return bearer
	}
	return ""
}

// BearerToken returns the token of an Authorization: Bearer header.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func adminView(admin models.Admin) gin.H {
	return gin.H{
		"id":           admin.ID,
		"username":     admin.Username,
		"totp_enabled": strings.TrimSpace(admin.TOTPSecret) != "",
	}
}

// rejectLogin answers a failed credential check and logs the attempt with
// its credentials hidden.
func rejectLogin(c *gin.Context, fields map[string]string) {
	log.WithFields(log.Fields{"ip": c.ClientIP(), "fields": util.MaskFields(fields)}).Warn("login rejected")
	metrics.ObserveLogin(metrics.OutcomeRejected)
	fail(c, http.StatusUnauthorized, MsgInvalidCredentials)
}
