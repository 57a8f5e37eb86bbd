package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvpanel/tvpanel/internal/activity"
	"github.com/tvpanel/tvpanel/internal/expiry"
	"github.com/tvpanel/tvpanel/internal/metrics"
	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/policy"
	"github.com/tvpanel/tvpanel/internal/records"
	"github.com/tvpanel/tvpanel/internal/schema"
	"github.com/tvpanel/tvpanel/internal/util"
	log "github.com/sirupsen/logrus"
)

// statusPresentation is how the panel renders an expiry status.
type statusPresentation struct {
	Class string
	Label string
}

var statusPresentations = map[expiry.Status]statusPresentation{
	expiry.StatusUnknown:      {Class: "secondary", Label: "Nieznany"},
	expiry.StatusExpired:      {Class: "danger", Label: "Wygasł"},
	expiry.StatusExpiringSoon: {Class: "warning", Label: "Wygasa wkrótce"},
	expiry.StatusActive:       {Class: "success", Label: "Aktywny"},
}

const (
	defaultExtendDays = 30
	maxExtendDays     = 3650
)

// ClientsHandler serves client creation, licence extension and status lookups.
type ClientsHandler struct {
	engine   *policy.Engine
	store    *records.Store
	activity *activity.Recorder
	clock    Clock
}

// NewClientsHandler constructs a ClientsHandler.
func NewClientsHandler(engine *policy.Engine, store *records.Store, recorder *activity.Recorder, clock Clock) *ClientsHandler {
	return &ClientsHandler{engine: engine, store: store, activity: recorder, clock: clock}
}

// AddClient validates and inserts a new client. Validation failures and
// duplicate usernames are reported with success=false and HTTP 200.
func (h *ClientsHandler) AddClient(c *gin.Context) {
	fields, errBind := bindFields(c)
	if errBind != nil {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}
	label := string(schema.Clients)

	client, errValidate := policy.ValidateNewClient(policy.ClientInput{
		Username:       fields["username"],
		Password:       fields["password"],
		IsTrial:        fields["is_trial"],
		ExpDate:        fields["exp_date"],
		MaxConnections: fields["max_connections"],
		Bouquet:        fields["bouquet"],
		Notes:          fields["notes"],
	})
	if errValidate != nil {
		metrics.ObserveMutation("create", label, metrics.OutcomeRejected)
		fail(c, http.StatusOK, errValidate.Error())
		return
	}

	ctx := c.Request.Context()
	taken, errTaken := h.store.UsernameTaken(ctx, client.Username)
	if errTaken != nil {
		log.WithError(errTaken).Error("check client username")
		metrics.ObserveMutation("create", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	if taken {
		metrics.ObserveMutation("create", label, metrics.OutcomeConflict)
		fail(c, http.StatusOK, MsgUsernameExists)
		return
	}

	id, errCreate := h.store.CreateClient(ctx, client, principal(c).Username)
	if errCreate != nil {
		if errors.Is(errCreate, records.ErrDuplicate) {
			metrics.ObserveMutation("create", label, metrics.OutcomeConflict)
			fail(c, http.StatusOK, MsgUsernameExists)
			return
		}
		log.WithError(errCreate).WithField("fields", util.MaskFields(fields)).Error("add client")
		metrics.ObserveMutation("create", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	if id == 0 {
		metrics.ObserveMutation("create", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgClientInsertFailed)
		return
	}

	h.activity.Record(ctx, activity.ActionAddClient, activity.AddClientDetails(client.Username, id))
	metrics.ObserveMutation("create", label, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   MsgClientAdded,
		"client_id": id,
	})
}

// Extend pushes a client's expiry date forward by days (default 30). A
// licence still running is extended from its expiry date, a lapsed one from today.
func (h *ClientsHandler) Extend(c *gin.Context) {
	label := string(schema.Clients)
	id, ok := parseID(c.Param("id"))
	if !ok {
		metrics.ObserveMutation("update", label, metrics.OutcomeNotFound)
		fail(c, http.StatusNotFound, MsgRecordNotFound)
		return
	}
	fields, errBind := bindFields(c)
	if errBind != nil {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}
	rawDays := strings.TrimSpace(fields["days"])
	if rawDays == "" {
		rawDays = strings.TrimSpace(c.Query("days"))
	}
	days := defaultExtendDays
	if rawDays != "" {
		n, errAtoi := strconv.Atoi(rawDays)
		if errAtoi != nil || n < 1 || n > maxExtendDays {
			metrics.ObserveMutation("update", label, metrics.OutcomeRejected)
			fail(c, http.StatusBadRequest, MsgInvalidDays)
			return
		}
		days = n
	}

	ctx := c.Request.Context()
	row, errLoad := h.store.Client(ctx, id)
	if errLoad != nil {
		if errors.Is(errLoad, records.ErrNotFound) {
			metrics.ObserveMutation("update", label, metrics.OutcomeNotFound)
			fail(c, http.StatusNotFound, MsgRecordNotFound)
			return
		}
		log.WithError(errLoad).WithField("id", id).Error("load client for extension")
		metrics.ObserveMutation("update", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}

	today := h.clock.Today(ctx)
	from := today
	if row.ExpDate != nil {
		current := time.Time(*row.ExpDate)
		current = time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, today.Location())
		if current.After(today) {
			from = current
		}
	}
	newExpiry := from.AddDate(0, 0, days)
	newExpiryText := newExpiry.Format(schema.DateLayout)

	upd, errPrepare := h.engine.PrepareUpdate(label, string(schema.ColExpDate), newExpiryText)
	if errPrepare != nil {
		log.WithError(errPrepare).Error("prepare licence extension")
		metrics.ObserveMutation("update", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgServerError)
		return
	}
	if errUpdate := h.store.UpdateField(ctx, upd, id); errUpdate != nil {
		if errors.Is(errUpdate, records.ErrNotFound) {
			metrics.ObserveMutation("update", label, metrics.OutcomeNotFound)
			fail(c, http.StatusNotFound, MsgRecordNotFound)
			return
		}
		log.WithError(errUpdate).WithField("id", id).Error("extend licence")
		metrics.ObserveMutation("update", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}

	h.activity.Record(ctx, activity.ActionExtendLicense, activity.ExtendDetails(row.Username, id, days, newExpiryText))
	metrics.ObserveMutation("update", label, metrics.OutcomeSuccess)
	res := expiry.Classify(&newExpiry, today)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    fmt.Sprintf(MsgLicenseExtended, days),
		"client_id":  id,
		"exp_date":   newExpiryText,
		"new_expiry": newExpiryText,
		"status":     res.Status,
		"days_left":  res.DaysRemaining,
	})
}

// Status classifies a single expiry date, e.g. after an inline edit.
func (h *ClientsHandler) Status(c *gin.Context) {
	var expDate *time.Time
	if raw := strings.TrimSpace(c.Query("exp_date")); raw != "" {
		d, ok := policy.ParseDate(raw)
		if !ok {
			fail(c, http.StatusBadRequest, policy.MsgExpDateInvalid)
			return
		}
		expDate = &d
	}
	res := expiry.Classify(expDate, h.clock.Today(c.Request.Context()))
	pres := statusPresentations[res.Status]
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    res.Status,
		"days_left": res.DaysRemaining,
		"class":     pres.Class,
		"label":     pres.Label,
	})
}

type classifiedClient struct {
	status expiry.Status
	body   gin.H
}

// clientView renders a client row with its expiry classification.
func clientView(row models.Client, today time.Time) classifiedClient {
	var expDate *time.Time
	var expDateText any
	if row.ExpDate != nil {
		d := time.Time(*row.ExpDate)
		expDate = &d
		expDateText = d.Format(schema.DateLayout)
	}
	res := expiry.Classify(expDate, today)
	pres := statusPresentations[res.Status]
	return classifiedClient{
		status: res.Status,
		body: gin.H{
			"id":              row.ID,
			"username":        row.Username,
			"password":        row.Password,
			"is_trial":        row.IsTrial,
			"exp_date":        expDateText,
			"max_connections": row.MaxConnections,
			"created_by":      row.CreatedBy,
			"bouquet":         row.Bouquet,
			"notes":           row.Notes,
			"created_at":      row.CreatedAt,
			"updated_at":      row.UpdatedAt,
			"status":          res.Status,
			"status_label":    pres.Label,
			"days_left":       res.DaysRemaining,
		},
	}
}
