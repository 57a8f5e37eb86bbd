package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/pquerna/otp/totp"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/tvpanel/tvpanel/internal/db"
	"github.com/tvpanel/tvpanel/internal/http/api/panel/handlers"
	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/policy"
	"github.com/tvpanel/tvpanel/internal/security"
	"github.com/tvpanel/tvpanel/internal/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testCookieName = "tvpanel_session"
	testJWTSecret  = "panel-test-secret"
)

type testPanel struct {
	router *gin.Engine
	db     *gorm.DB
	now    time.Time
	today  time.Time
	cookie *http.Cookie
}

func newTestPanel(t *testing.T) *testPanel {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:panel_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	hash, errHash := security.HashPassword("admin123")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	if errCreate := conn.Create(&models.Admin{Username: "admin", Password: hash}).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}

	now := time.Now().UTC()
	r := gin.New()
	RegisterPanelRoutes(r, Options{
		DB:       conn,
		Sessions: session.NewDBStore(conn),
		Session: handlers.SessionOptions{
			CookieName: testCookieName,
			TTL:        time.Hour,
			JWTSecret:  testJWTSecret,
			JWTTTL:     time.Hour,
		},
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})

	y, m, d := now.Date()
	return &testPanel{router: r, db: conn, now: now, today: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (p *testPanel) login(t *testing.T) {
	t.Helper()
	rec, body := p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("login failed: %d %v", rec.Code, body)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == testCookieName {
			p.cookie = cookie
		}
	}
	if p.cookie == nil {
		t.Fatalf("expected session cookie after login")
	}
}

func (p *testPanel) send(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if p.cookie != nil {
		req.AddCookie(p.cookie)
	}
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		if errDecode := json.Unmarshal(rec.Body.Bytes(), &body); errDecode != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
		}
	}
	return rec, body
}

func (p *testPanel) form(t *testing.T, method, path string, values url.Values) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if method == http.MethodGet {
		target := path
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return p.send(t, req)
}

func (p *testPanel) json(t *testing.T, path string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		t.Fatalf("marshal payload: %v", errMarshal)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return p.send(t, req)
}

func (p *testPanel) addClient(t *testing.T, username string, exp time.Time, maxConnections string) map[string]any {
	t.Helper()
	_, body := p.form(t, http.MethodPost, "/api/add-client", url.Values{
		"username":        {username},
		"password":        {"pass"},
		"exp_date":        {exp.Format("2006-01-02")},
		"max_connections": {maxConnections},
	})
	return body
}

func (p *testPanel) stats(t *testing.T) map[string]any {
	t.Helper()
	rec, body := p.form(t, http.MethodGet, "/api/dashboard-stats", nil)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("dashboard stats failed: %d %v", rec.Code, body)
	}
	stats, ok := body["stats"].(map[string]any)
	if !ok {
		t.Fatalf("expected stats object, got %v", body)
	}
	return stats
}

func (p *testPanel) countClients(t *testing.T) int64 {
	t.Helper()
	var count int64
	if errCount := p.db.Model(&models.Client{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count clients: %v", errCount)
	}
	return count
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	p := newTestPanel(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/update"},
		{http.MethodPost, "/api/delete.php"},
		{http.MethodPost, "/api/add-client"},
		{http.MethodGet, "/api/dashboard-stats"},
		{http.MethodGet, "/api/generate-password.php"},
		{http.MethodGet, "/api/update"},
		{http.MethodGet, "/api/records/clients"},
	} {
		rec, body := p.form(t, tc.method, tc.path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
		if body["success"] != false || body["error"] != handlers.MsgUnauthorized {
			t.Fatalf("%s %s: unexpected body %v", tc.method, tc.path, body)
		}
	}
}

func TestWrongMethodIsRejected(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/update"},
		{http.MethodGet, "/api/delete.php"},
		{http.MethodPut, "/api/add-client"},
		{http.MethodPost, "/api/dashboard-stats"},
	} {
		rec, body := p.form(t, tc.method, tc.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, rec.Code)
		}
		if body["error"] != handlers.MsgMethodNotAllowed {
			t.Fatalf("%s %s: unexpected body %v", tc.method, tc.path, body)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	p := newTestPanel(t)
	rec, body := p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	if rec.Code != http.StatusUnauthorized || body["error"] != handlers.MsgInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %d %v", rec.Code, body)
	}
	rec, body = p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgMissingData {
		t.Fatalf("expected missing data, got %d %v", rec.Code, body)
	}
}

func TestAddClientLandsInExpiringBucket(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)

	body := p.addClient(t, "bob12", p.today.AddDate(0, 0, 3), "2")
	if body["success"] != true || body["message"] != handlers.MsgClientAdded {
		t.Fatalf("expected client to be added, got %v", body)
	}
	if id, ok := body["client_id"].(float64); !ok || id <= 0 {
		t.Fatalf("expected client_id, got %v", body["client_id"])
	}

	var client models.Client
	if errFind := p.db.Where("username = ?", "bob12").First(&client).Error; errFind != nil {
		t.Fatalf("find client: %v", errFind)
	}
	if client.CreatedBy != "admin" || client.MaxConnections != 2 {
		t.Fatalf("unexpected stored client %+v", client)
	}

	stats := p.stats(t)
	if stats["all"] != 1.0 || stats["expiring"] != 1.0 || stats["active"] != 1.0 || stats["expired"] != 0.0 {
		t.Fatalf("unexpected stats %v", stats)
	}

	var entries []models.ActivityLog
	if errFind := p.db.Where("action = ?", "ADD_CLIENT").Find(&entries).Error; errFind != nil {
		t.Fatalf("find activity: %v", errFind)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Details, "Added client: bob12 (ID: ") {
		t.Fatalf("unexpected activity entries %+v", entries)
	}
}

func TestDashboardStatsBuckets(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)

	p.addClient(t, "expired1", p.today.AddDate(0, 0, -1), "1")
	p.addClient(t, "today01", p.today, "1")
	p.addClient(t, "week007", p.today.AddDate(0, 0, 7), "1")
	p.addClient(t, "later08", p.today.AddDate(0, 0, 8), "1")
	if errCreate := p.db.Create(&models.Client{Username: "nodate", Password: "pass", MaxConnections: 1}).Error; errCreate != nil {
		t.Fatalf("create undated client: %v", errCreate)
	}

	stats := p.stats(t)
	if stats["all"] != 5.0 || stats["active"] != 3.0 || stats["expiring"] != 2.0 || stats["expired"] != 1.0 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestAddClientValidation(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	exp := p.today.AddDate(0, 1, 0)

	for _, raw := range []string{"0", "101"} {
		body := p.addClient(t, "conn"+raw, exp, raw)
		if body["success"] != false || body["error"] != policy.MsgConnectionsRange {
			t.Fatalf("max_connections %s: unexpected body %v", raw, body)
		}
	}
	if body := p.addClient(t, "ab", exp, "1"); body["error"] != policy.MsgUsernameTooShort {
		t.Fatalf("expected short username to be rejected, got %v", body)
	}
	if body := p.addClient(t, "abc", exp, "1"); body["success"] != true {
		t.Fatalf("expected 3 character username to be accepted, got %v", body)
	}
	if got := p.countClients(t); got != 1 {
		t.Fatalf("expected exactly one client, got %d", got)
	}
}

func TestAddClientRejectsDuplicateUsername(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	exp := p.today.AddDate(0, 1, 0)

	if body := p.addClient(t, "bob12", exp, "1"); body["success"] != true {
		t.Fatalf("first insert failed: %v", body)
	}
	rec, body := p.form(t, http.MethodPost, "/api/add-client", url.Values{
		"username": {"bob12"},
		"password": {"other"},
		"exp_date": {exp.Format("2006-01-02")},
	})
	if rec.Code != http.StatusOK || body["success"] != false || body["error"] != handlers.MsgUsernameExists {
		t.Fatalf("expected duplicate rejection, got %d %v", rec.Code, body)
	}
	if got := p.countClients(t); got != 1 {
		t.Fatalf("expected no row to be added, got %d clients", got)
	}
}

func TestUpdateRejectsUndeclaredField(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	p.addClient(t, "bob12", p.today.AddDate(0, 1, 0), "1")

	rec, body := p.form(t, http.MethodPost, "/api/update", url.Values{
		"table": {"clients"}, "id": {"1"}, "field": {"ssn"}, "value": {"123"},
	})
	if rec.Code != http.StatusBadRequest || body["success"] != false || body["error"] != handlers.MsgInvalidTableOrField {
		t.Fatalf("expected rejection, got %d %v", rec.Code, body)
	}

	rec, body = p.form(t, http.MethodPost, "/api/update", url.Values{
		"table": {"admin_users"}, "id": {"1"}, "field": {"password"}, "value": {"x"},
	})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidTableOrField {
		t.Fatalf("expected admin_users to be rejected, got %d %v", rec.Code, body)
	}

	rec, body = p.form(t, http.MethodPost, "/api/update", url.Values{"table": {"clients"}, "id": {"1"}})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgMissingData {
		t.Fatalf("expected missing data, got %d %v", rec.Code, body)
	}
}

func TestUpdateWritesCoercedValues(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	p.addClient(t, "bob12", p.today.AddDate(0, 1, 0), "1")
	p.addClient(t, "alice", p.today.AddDate(0, 1, 0), "1")

	rec, body := p.json(t, "/api/update", map[string]any{"table": "clients", "id": 1, "field": "max_connections", "value": 5})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected update to succeed, got %d %v", rec.Code, body)
	}
	rec, body = p.form(t, http.MethodPost, "/api/update.php", url.Values{
		"table": {"clients"}, "id": {"1"}, "field": {"is_trial"}, "value": {"on"},
	})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected trial update to succeed, got %d %v", rec.Code, body)
	}

	var client models.Client
	if errFind := p.db.First(&client, 1).Error; errFind != nil {
		t.Fatalf("find client: %v", errFind)
	}
	if client.MaxConnections != 5 || !client.IsTrial {
		t.Fatalf("unexpected client after update %+v", client)
	}

	rec, body = p.form(t, http.MethodPost, "/api/update", url.Values{
		"table": {"clients"}, "id": {"1"}, "field": {"max_connections"}, "value": {"101"},
	})
	if rec.Code != http.StatusBadRequest || !strings.HasPrefix(fmt.Sprint(body["error"]), handlers.MsgInvalidFieldValue) {
		t.Fatalf("expected invalid value rejection, got %d %v", rec.Code, body)
	}

	rec, body = p.form(t, http.MethodPost, "/api/update", url.Values{
		"table": {"clients"}, "id": {"1"}, "field": {"username"}, "value": {"alice"},
	})
	if rec.Code != http.StatusConflict || body["error"] != handlers.MsgUsernameExists {
		t.Fatalf("expected duplicate username conflict, got %d %v", rec.Code, body)
	}

	rec, body = p.form(t, http.MethodPost, "/api/update", url.Values{
		"table": {"clients"}, "id": {"999"}, "field": {"notes"}, "value": {"x"},
	})
	if rec.Code != http.StatusNotFound || body["error"] != handlers.MsgRecordNotFound {
		t.Fatalf("expected missing record, got %d %v", rec.Code, body)
	}

	var updates int64
	if errCount := p.db.Model(&models.ActivityLog{}).Where("action = ?", "UPDATE_clients").Count(&updates).Error; errCount != nil {
		t.Fatalf("count activity: %v", errCount)
	}
	if updates != 2 {
		t.Fatalf("expected one activity entry per successful update, got %d", updates)
	}
}

func TestUpdateSettingsIgnoresFieldName(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	row := models.Setting{SettingKey: "panel_name", SettingValue: "TV Panel"}
	if errCreate := p.db.Create(&row).Error; errCreate != nil {
		t.Fatalf("create setting: %v", errCreate)
	}

	rec, body := p.form(t, http.MethodPost, "/api/update", url.Values{
		"table": {"settings"}, "id": {fmt.Sprint(row.ID)}, "field": {"setting_key"}, "value": {"Mój Panel"},
	})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected settings update to succeed, got %d %v", rec.Code, body)
	}
	var got models.Setting
	if errFind := p.db.First(&got, row.ID).Error; errFind != nil {
		t.Fatalf("find setting: %v", errFind)
	}
	if got.SettingKey != "panel_name" || got.SettingValue != "Mój Panel" {
		t.Fatalf("expected only setting_value to change, got %+v", got)
	}
}

func TestDeleteRecords(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	p.addClient(t, "bob12", p.today.AddDate(0, 1, 0), "1")

	rec, body := p.form(t, http.MethodPost, "/api/delete", url.Values{"table": {"admin_users"}, "id": {"1"}})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidTable {
		t.Fatalf("expected admin_users delete to be rejected, got %d %v", rec.Code, body)
	}
	var admins int64
	if errCount := p.db.Model(&models.Admin{}).Count(&admins).Error; errCount != nil || admins != 1 {
		t.Fatalf("expected admin to survive, got %d (%v)", admins, errCount)
	}

	rec, body = p.form(t, http.MethodPost, "/api/delete", url.Values{"table": {"settings"}, "id": {"1"}})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidTable {
		t.Fatalf("expected settings delete to be rejected, got %d %v", rec.Code, body)
	}

	rec, body = p.form(t, http.MethodPost, "/api/delete", url.Values{"table": {"clients"}, "id": {"42"}})
	if rec.Code != http.StatusNotFound || body["error"] != handlers.MsgRecordNotFound {
		t.Fatalf("expected missing record, got %d %v", rec.Code, body)
	}

	rec, body = p.form(t, http.MethodPost, "/api/delete", url.Values{"table": {"clients"}, "id": {"1"}})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected delete to succeed, got %d %v", rec.Code, body)
	}
	if got := p.countClients(t); got != 0 {
		t.Fatalf("expected client to be deleted, got %d", got)
	}
}

func TestGeneratePasswordClampsLength(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	for raw, want := range map[string]float64{"": 8, "3": 6, "12": 12, "100": 32, "abc": 6} {
		values := url.Values{}
		if raw != "" {
			values.Set("length", raw)
		}
		rec, body := p.form(t, http.MethodGet, "/api/generate-password", values)
		if rec.Code != http.StatusOK || body["success"] != true {
			t.Fatalf("length %q: unexpected response %d %v", raw, rec.Code, body)
		}
		password, _ := body["password"].(string)
		if body["length"] != want || float64(len(password)) != want {
			t.Fatalf("length %q: expected %v, got %v (%q)", raw, want, body["length"], password)
		}
	}
}

func TestRecordsListAndCreate(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	p.addClient(t, "expired1", p.today.AddDate(0, 0, -2), "1")
	p.addClient(t, "bob12", p.today.AddDate(0, 0, 3), "1")

	rec, body := p.form(t, http.MethodGet, "/api/records/clients", url.Values{"status": {"expiring_soon"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("list clients: %d %v", rec.Code, body)
	}
	list, _ := body["records"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected one expiring client, got %v", body["records"])
	}
	row, _ := list[0].(map[string]any)
	if row["username"] != "bob12" || row["days_left"] != 3.0 || row["status"] != "expiring_soon" {
		t.Fatalf("unexpected client row %v", row)
	}

	rec, body = p.json(t, "/api/records/pricing_config", map[string]any{"name": "1 month", "price": "25,50"})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("create pricing: %d %v", rec.Code, body)
	}
	var pricing models.PricingConfig
	if errFind := p.db.First(&pricing).Error; errFind != nil {
		t.Fatalf("find pricing: %v", errFind)
	}
	if pricing.Price != 25.5 || pricing.Currency != "PLN" {
		t.Fatalf("unexpected pricing row %+v", pricing)
	}

	rec, body = p.json(t, "/api/records/clients", map[string]any{"username": "direct"})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidTable {
		t.Fatalf("expected clients to require add-client, got %d %v", rec.Code, body)
	}
	rec, body = p.form(t, http.MethodGet, "/api/records/admin_users", nil)
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidTable {
		t.Fatalf("expected admin_users listing to be rejected, got %d %v", rec.Code, body)
	}

	rec, body = p.form(t, http.MethodGet, "/api/records/pricing_config", nil)
	list, _ = body["records"].([]any)
	if rec.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("expected one pricing row, got %d %v", rec.Code, body)
	}
}

func TestClientStatus(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)

	rec, body := p.form(t, http.MethodGet, "/api/client-status", url.Values{"exp_date": {p.today.AddDate(0, 0, 8).Format("2006-01-02")}})
	if rec.Code != http.StatusOK || body["status"] != "active" || body["days_left"] != 8.0 || body["label"] != "Aktywny" {
		t.Fatalf("unexpected status %d %v", rec.Code, body)
	}
	_, body = p.form(t, http.MethodGet, "/api/client-status", nil)
	if body["status"] != "unknown" || body["days_left"] != nil {
		t.Fatalf("expected unknown status, got %v", body)
	}
	rec, _ = p.form(t, http.MethodGet, "/api/client-status", url.Values{"exp_date": {"2026-13-01"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid date to be rejected, got %d", rec.Code)
	}
}

func TestBearerTokenAuthentication(t *testing.T) {
	p := newTestPanel(t)
	token, errToken := security.GenerateAdminToken(testJWTSecret, 1, "admin", time.Hour)
	if errToken != nil {
		t.Fatalf("generate token: %v", errToken)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, body := p.send(t, req)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected bearer auth to succeed, got %d %v", rec.Code, body)
	}

	forged, _ := security.GenerateAdminToken("other-secret", 1, "admin", time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	if rec, _ := p.send(t, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected forged token to be rejected, got %d", rec.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	if rec, _ := p.form(t, http.MethodGet, "/api/me", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected session to be valid, got %d", rec.Code)
	}
	if rec, body := p.form(t, http.MethodPost, "/api/logout", nil); rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("logout failed: %d %v", rec.Code, body)
	}
	if rec, _ := p.form(t, http.MethodGet, "/api/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked session to be rejected, got %d", rec.Code)
	}
}

func TestLoginRequiresTOTPWhenEnabled(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)

	rec, body := p.form(t, http.MethodPost, "/api/mfa/totp/prepare", nil)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("prepare totp: %d %v", rec.Code, body)
	}
	secret, _ := body["secret"].(string)
	code, errCode := totp.GenerateCode(secret, p.now)
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	rec, body = p.form(t, http.MethodPost, "/api/mfa/totp/confirm", url.Values{"code": {code}})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("confirm totp: %d %v", rec.Code, body)
	}

	p.cookie = nil
	rec, body = p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	if rec.Code != http.StatusUnauthorized || body["error"] != handlers.MsgTOTPRequired {
		t.Fatalf("expected totp to be required, got %d %v", rec.Code, body)
	}
	rec, body = p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}, "password": {"admin123"}, "totp_code": {"000000x"}})
	if rec.Code != http.StatusUnauthorized || body["error"] != handlers.MsgTOTPInvalid {
		t.Fatalf("expected invalid totp, got %d %v", rec.Code, body)
	}
	rec, body = p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}, "password": {"admin123"}, "totp_code": {code}})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected login with totp to succeed, got %d %v", rec.Code, body)
	}
}

func TestHealthz(t *testing.T) {
	p := newTestPanel(t)
	rec, body := p.form(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || body["ok"] != true || body["database"] != "sqlite" {
		t.Fatalf("unexpected health response %d %v", rec.Code, body)
	}
}

func TestLoginUpgradesLegacyPasswordHash(t *testing.T) {
	p := newTestPanel(t)
	legacy, errHash := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	phpHash := "$2y$" + strings.TrimPrefix(string(legacy), "$2a$")
	if errUpdate := p.db.Model(&models.Admin{}).Where("username = ?", "admin").Update("password", phpHash).Error; errUpdate != nil {
		t.Fatalf("store legacy hash: %v", errUpdate)
	}

	p.login(t)

	var admin models.Admin
	if errFind := p.db.Where("username = ?", "admin").First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if admin.Password == phpHash || security.NeedsRehash(admin.Password) {
		t.Fatalf("expected password hash to be upgraded, got %q", admin.Password)
	}
	if !security.CheckPassword(admin.Password, "admin123") {
		t.Fatalf("expected upgraded hash to match the password")
	}
}

func (p *testPanel) enableTOTP(t *testing.T) string {
	t.Helper()
	rec, body := p.form(t, http.MethodPost, "/api/mfa/totp/prepare", nil)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("prepare totp: %d %v", rec.Code, body)
	}
	secret, _ := body["secret"].(string)
	code, errCode := totp.GenerateCode(secret, p.now)
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	rec, body = p.form(t, http.MethodPost, "/api/mfa/totp/confirm", url.Values{"code": {code}})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("confirm totp: %d %v", rec.Code, body)
	}
	return secret
}

func TestConfirmTOTPWithoutPreparedSecret(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	rec, body := p.form(t, http.MethodPost, "/api/mfa/totp/confirm", url.Values{"code": {"123456"}})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgTOTPNotPrepared {
		t.Fatalf("expected confirm without prepare to be rejected, got %d %v", rec.Code, body)
	}
}

func TestDisableTOTPRequiresCurrentCode(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	secret := p.enableTOTP(t)

	rec, body := p.form(t, http.MethodPost, "/api/mfa/totp/disable", nil)
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgTOTPRequired {
		t.Fatalf("expected disable without code to be rejected, got %d %v", rec.Code, body)
	}
	rec, body = p.form(t, http.MethodPost, "/api/mfa/totp/disable", url.Values{"code": {"000000x"}})
	if rec.Code != http.StatusUnauthorized || body["error"] != handlers.MsgTOTPInvalid {
		t.Fatalf("expected disable with a wrong code to be rejected, got %d %v", rec.Code, body)
	}
	var admin models.Admin
	p.db.Where("username = ?", "admin").First(&admin)
	if admin.TOTPSecret != secret {
		t.Fatalf("expected totp to stay enabled after rejected disables")
	}

	code, errCode := totp.GenerateCode(secret, p.now)
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	rec, body = p.form(t, http.MethodPost, "/api/mfa/totp/disable", url.Values{"code": {code}})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("disable totp: %d %v", rec.Code, body)
	}

	p.cookie = nil
	rec, body = p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected login without a code after disable, got %d %v", rec.Code, body)
	}
}

func TestCreateRejectsPaddedClientsTable(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	rec, body := p.json(t, "/api/records/%20clients", map[string]any{"username": "direct", "password": "pass"})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidTable {
		t.Fatalf("expected padded clients table to be rejected, got %d %v", rec.Code, body)
	}
	if n := p.countClients(t); n != 0 {
		t.Fatalf("expected no clients, got %d", n)
	}
	rec, body = p.json(t, "/api/records/%20apps%20", map[string]any{"name": "Smarters"})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected padded reference table to resolve, got %d %v", rec.Code, body)
	}
}

func TestExtendClientLicense(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)
	running := p.addClient(t, "bob12", p.today.AddDate(0, 0, 5), "1")
	lapsed := p.addClient(t, "expired1", p.today.AddDate(0, 0, -10), "1")
	runningID := fmt.Sprintf("%.0f", running["client_id"])
	lapsedID := fmt.Sprintf("%.0f", lapsed["client_id"])

	rec, body := p.form(t, http.MethodPost, "/api/clients/"+runningID+"/extend", nil)
	want := p.today.AddDate(0, 0, 35).Format("2006-01-02")
	if rec.Code != http.StatusOK || body["exp_date"] != want || body["message"] != "Licencja przedłużona o 30 dni" {
		t.Fatalf("unexpected extension %d %v", rec.Code, body)
	}
	if body["status"] != "active" || body["days_left"] != 35.0 {
		t.Fatalf("unexpected extension status %v", body)
	}

	rec, body = p.json(t, "/api/clients/"+lapsedID+"/extend", map[string]any{"days": 7})
	want = p.today.AddDate(0, 0, 7).Format("2006-01-02")
	if rec.Code != http.StatusOK || body["exp_date"] != want {
		t.Fatalf("expected lapsed licence to extend from today, got %d %v", rec.Code, body)
	}
	var client models.Client
	p.db.Where("username = ?", "expired1").First(&client)
	if client.ExpDate == nil || time.Time(*client.ExpDate).Format("2006-01-02") != want {
		t.Fatalf("unexpected stored exp_date %v", client.ExpDate)
	}
	var entries int64
	p.db.Model(&models.ActivityLog{}).Where("action = ?", "EXTEND_LICENSE").Count(&entries)
	if entries != 2 {
		t.Fatalf("expected 2 extension entries, got %d", entries)
	}

	for _, days := range []string{"0", "-3", "abc", "3651"} {
		rec, body = p.form(t, http.MethodPost, "/api/clients/"+runningID+"/extend", url.Values{"days": {days}})
		if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidDays {
			t.Fatalf("days %q: expected 400, got %d %v", days, rec.Code, body)
		}
	}
	if rec, _ := p.form(t, http.MethodPost, "/api/clients/999/extend", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected missing client to be 404, got %d", rec.Code)
	}
	if rec, _ := p.form(t, http.MethodPost, "/api/clients/abc/extend", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected unparsable id to be 404, got %d", rec.Code)
	}
}

func TestImportRecordsIsAllOrNothing(t *testing.T) {
	p := newTestPanel(t)
	p.login(t)

	rec, body := p.json(t, "/api/records/smart_tv_activations/import", []map[string]any{
		{"activation_id": "A-1", "app_name": "IBO", "app_price": 40},
		{"activation_id": "A-2", "app_name": "Smarters"},
	})
	if rec.Code != http.StatusOK || body["imported"] != 2.0 || body["message"] != "Zaimportowano 2 rekordów" {
		t.Fatalf("unexpected import %d %v", rec.Code, body)
	}

	countActivations := func() int64 {
		var n int64
		p.db.Model(&models.SmartTVActivation{}).Count(&n)
		return n
	}
	rec, body = p.json(t, "/api/records/smart_tv_activations/import", []map[string]any{
		{"activation_id": "A-3"},
		{"activation_id": "A-1"},
	})
	if rec.Code != http.StatusConflict || body["success"] != false {
		t.Fatalf("expected duplicate batch to conflict, got %d %v", rec.Code, body)
	}
	if n := countActivations(); n != 2 {
		t.Fatalf("expected the failed batch to roll back, got %d rows", n)
	}

	rec, body = p.json(t, "/api/records/smart_tv_activations/import", []map[string]any{
		{"activation_id": "A-4"},
		{"activation_id": "A-5", "app_price": "free"},
	})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidFieldValue+" app_price" {
		t.Fatalf("expected invalid row to reject the batch, got %d %v", rec.Code, body)
	}
	if n := countActivations(); n != 2 {
		t.Fatalf("expected no rows from the rejected batch, got %d", n)
	}

	for _, table := range []string{"clients", "settings", "admin_users"} {
		rec, body = p.json(t, "/api/records/"+table+"/import", []map[string]any{{"name": "x"}})
		if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgInvalidTable {
			t.Fatalf("%s: expected import to be refused, got %d %v", table, rec.Code, body)
		}
	}
	rec, body = p.json(t, "/api/records/apps/import", []map[string]any{})
	if rec.Code != http.StatusBadRequest || body["error"] != handlers.MsgMissingData {
		t.Fatalf("expected empty import to be rejected, got %d %v", rec.Code, body)
	}
}

func TestRejectedLoginLogsMaskedCredentials(t *testing.T) {
	p := newTestPanel(t)
	hook := logtest.NewGlobal()
	defer hook.Reset()

	rec, _ := p.form(t, http.MethodPost, "/api/login", url.Values{"username": {"admin"}, "password": {"hunter2-guess"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var logged map[string]string
	for _, entry := range hook.AllEntries() {
		if entry.Message == "login rejected" {
			logged, _ = entry.Data["fields"].(map[string]string)
		}
	}
	if logged == nil {
		t.Fatalf("expected a login rejected entry")
	}
	if logged["username"] != "admin" || logged["password"] == "hunter2-guess" || strings.Contains(logged["password"], "guess") {
		t.Fatalf("expected password to be masked, got %v", logged)
	}
}
