package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvpanel/tvpanel/internal/expiry"
	"github.com/tvpanel/tvpanel/internal/session"
	"github.com/tvpanel/tvpanel/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// User-visible panel messages.
const (
	MsgUnauthorized        = "Brak autoryzacji"
	MsgMethodNotAllowed    = "Metoda niedozwolona"
	MsgMissingData         = "Brakujące dane"
	MsgInvalidTableOrField = "Nieprawidłowa tabela lub pole"
	MsgInvalidTable        = "Nieprawidłowa tabela"
	MsgRecordNotFound      = "Rekord nie istnieje"
	MsgUsernameExists      = "Nazwa użytkownika już istnieje"
	MsgDatabaseError       = "Błąd bazy danych"
	MsgServerError         = "Błąd serwera"
	MsgStatsError          = "Błąd pobierania statystyk"
	MsgClientAdded         = "Klient został dodany pomyślnie"
	MsgClientInsertFailed  = "Błąd dodawania klienta do bazy danych"
	MsgInvalidCredentials  = "Nieprawidłowa nazwa użytkownika lub hasło"
	MsgTOTPRequired        = "Wymagany kod weryfikacyjny"
	MsgTOTPInvalid         = "Nieprawidłowy kod weryfikacyjny"
	MsgTOTPNotPrepared     = "Brak oczekującej konfiguracji kodu weryfikacyjnego"
	MsgInvalidFieldValue   = "Nieprawidłowa wartość pola"
	MsgInvalidDays         = "Nieprawidłowa liczba dni"
	MsgLicenseExtended     = "Licencja przedłużona o %d dni"
	MsgImported            = "Zaimportowano %d rekordów"
	MsgImportTooLarge      = "Import może zawierać najwyżej %d rekordów"
	MsgImportRowInvalid    = "Nieprawidłowy rekord nr %d"
)

// fail writes the error envelope.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// bindFields reads a flat set of fields from a JSON object, a urlencoded form
// or a multipart form. Scalar JSON values are rendered as strings.
func bindFields(c *gin.Context) (map[string]string, error) {
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var body map[string]any
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			return nil, errBind
		}
		return scalarFields(body)
	}

	if errParse := c.Request.ParseMultipartForm(8 << 20); errParse != nil && !errors.Is(errParse, http.ErrNotMultipart) {
		return nil, errParse
	}
	out := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out, nil
}

// scalarFields renders the scalar values of a JSON object as strings.
func scalarFields(body map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(body))
	for key, value := range body {
		switch v := value.(type) {
		case nil:
			out[key] = ""
		case string:
			out[key] = v
		case bool:
			if v {
				out[key] = "1"
			} else {
				out[key] = "0"
			}
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, errors.New("nested values are not supported")
		}
	}
	return out, nil
}

// parseID parses a positive record id.
func parseID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// readAdminIDFromContext returns the authenticated admin id set by the session middleware.
func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("adminID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok && id != 0
}

// principal returns the authenticated admin of the request.
func principal(c *gin.Context) session.Principal {
	p, _ := session.PrincipalFromContext(c.Request.Context())
	return p
}

// Clock resolves the panel's current date from the timezone setting.
type Clock struct {
	db       *gorm.DB
	now      func() time.Time
	fallback *time.Location
}

// NewClock constructs a Clock. A nil now uses time.Now and a nil fallback means UTC.
func NewClock(db *gorm.DB, now func() time.Time, fallback *time.Location) Clock {
	if now == nil {
		now = time.Now
	}
	if fallback == nil {
		fallback = time.UTC
	}
	return Clock{db: db, now: now, fallback: fallback}
}

// Today returns midnight of the current date in the panel timezone.
func (k Clock) Today(ctx context.Context) time.Time {
	loc := k.fallback
	if k.db != nil {
		snap, errLoad := settings.Load(ctx, k.db)
		if errLoad != nil {
			log.WithError(errLoad).Warn("load settings for timezone")
		} else {
			loc = snap.Location(k.fallback)
		}
	}
	return expiry.Today(k.now(), loc)
}

// Now returns the current instant.
func (k Clock) Now() time.Time { return k.now() }
