package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tvpanel/tvpanel/internal/activity"
	"github.com/tvpanel/tvpanel/internal/metrics"
	"github.com/tvpanel/tvpanel/internal/policy"
	"github.com/tvpanel/tvpanel/internal/records"
	"github.com/tvpanel/tvpanel/internal/schema"
	"github.com/tvpanel/tvpanel/internal/util"
	log "github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 500
	maxListLimit     = 5000
	maxImportRows    = 1000
)

// RecordsHandler serves the generic table endpoints.
type RecordsHandler struct {
	engine   *policy.Engine
	store    *records.Store
	activity *activity.Recorder
	clock    Clock
}

// NewRecordsHandler constructs a RecordsHandler.
func NewRecordsHandler(engine *policy.Engine, store *records.Store, recorder *activity.Recorder, clock Clock) *RecordsHandler {
	return &RecordsHandler{engine: engine, store: store, activity: recorder, clock: clock}
}

// Update writes one allow-listed field of one row.
func (h *RecordsHandler) Update(c *gin.Context) {
	fields, errBind := bindFields(c)
	if errBind != nil {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}
	table := strings.TrimSpace(fields["table"])
	rawID := strings.TrimSpace(fields["id"])
	field := strings.TrimSpace(fields["field"])
	if table == "" || rawID == "" || field == "" {
		metrics.ObserveMutation("update", "", metrics.OutcomeRejected)
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}

	upd, errPrepare := h.engine.PrepareUpdate(table, field, fields["value"])
	if errPrepare != nil {
		h.reject(c, "update", errPrepare)
		return
	}
	label := string(upd.Table)

	id, ok := parseID(rawID)
	if !ok {
		metrics.ObserveMutation("update", label, metrics.OutcomeNotFound)
		fail(c, http.StatusNotFound, MsgRecordNotFound)
		return
	}

	if errUpdate := h.store.UpdateField(c.Request.Context(), upd, id); errUpdate != nil {
		switch {
		case errors.Is(errUpdate, records.ErrNotFound):
			metrics.ObserveMutation("update", label, metrics.OutcomeNotFound)
			fail(c, http.StatusNotFound, MsgRecordNotFound)
		case errors.Is(errUpdate, records.ErrDuplicate):
			metrics.ObserveMutation("update", label, metrics.OutcomeConflict)
			msg := MsgDatabaseError
			if upd.Table == schema.Clients && upd.Column() == schema.ColUsername {
				msg = MsgUsernameExists
			}
			fail(c, http.StatusConflict, msg)
		default:
			log.WithError(errUpdate).WithFields(log.Fields{"table": label, "id": id, "fields": util.MaskFields(fields)}).Error("update record")
			metrics.ObserveMutation("update", label, metrics.OutcomeError)
			fail(c, http.StatusInternalServerError, MsgDatabaseError)
		}
		return
	}

	h.activity.Record(c.Request.Context(), activity.UpdateAction(upd.Table), activity.UpdateDetails(field, id))
	metrics.ObserveMutation("update", label, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete removes one row from a deletable table.
func (h *RecordsHandler) Delete(c *gin.Context) {
	fields, errBind := bindFields(c)
	if errBind != nil {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}
	table := strings.TrimSpace(fields["table"])
	rawID := strings.TrimSpace(fields["id"])
	if table == "" || rawID == "" {
		metrics.ObserveMutation("delete", "", metrics.OutcomeRejected)
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}

	target, errAuthorize := h.engine.AuthorizeDelete(table)
	if errAuthorize != nil {
		metrics.ObserveMutation("delete", "", metrics.OutcomeRejected)
		fail(c, http.StatusBadRequest, MsgInvalidTable)
		return
	}
	label := string(target)

	id, ok := parseID(rawID)
	if !ok {
		metrics.ObserveMutation("delete", label, metrics.OutcomeNotFound)
		fail(c, http.StatusNotFound, MsgRecordNotFound)
		return
	}

	if errDelete := h.store.Delete(c.Request.Context(), target, id); errDelete != nil {
		if errors.Is(errDelete, records.ErrNotFound) {
			metrics.ObserveMutation("delete", label, metrics.OutcomeNotFound)
			fail(c, http.StatusNotFound, MsgRecordNotFound)
			return
		}
		log.WithError(errDelete).WithFields(log.Fields{"table": label, "id": id}).Error("delete record")
		metrics.ObserveMutation("delete", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}

	h.activity.Record(c.Request.Context(), activity.DeleteAction(target), activity.DeleteDetails(id))
	metrics.ObserveMutation("delete", label, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Create inserts a row into a reference table. Clients are created through AddClient.
func (h *RecordsHandler) Create(c *gin.Context) {
	table := c.Param("table")
	if h.isClients(table) {
		metrics.ObserveMutation("create", string(schema.Clients), metrics.OutcomeRejected)
		fail(c, http.StatusBadRequest, MsgInvalidTable)
		return
	}
	fields, errBind := bindFields(c)
	if errBind != nil || len(fields) == 0 {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}

	target, values, errPrepare := h.engine.PrepareInsert(table, fields)
	if errPrepare != nil {
		h.reject(c, "create", errPrepare)
		return
	}
	label := string(target)

	id, errInsert := h.store.Insert(c.Request.Context(), target, values)
	if errInsert != nil {
		if errors.Is(errInsert, records.ErrDuplicate) {
			metrics.ObserveMutation("create", label, metrics.OutcomeConflict)
			fail(c, http.StatusConflict, MsgDatabaseError)
			return
		}
		log.WithError(errInsert).WithFields(log.Fields{"table": label, "fields": util.MaskFields(fields)}).Error("insert record")
		metrics.ObserveMutation("create", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}

	h.activity.Record(c.Request.Context(), activity.CreateAction(target), "Created record ID "+strconv.FormatUint(id, 10))
	metrics.ObserveMutation("create", label, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// Import inserts a JSON array of rows into a reference table in one
// transaction. A single invalid or conflicting row rejects the whole batch.
func (h *RecordsHandler) Import(c *gin.Context) {
	table := c.Param("table")
	if h.isClients(table) {
		metrics.ObserveMutation("import", string(schema.Clients), metrics.OutcomeRejected)
		fail(c, http.StatusBadRequest, MsgInvalidTable)
		return
	}
	var items []map[string]any
	if errBind := c.ShouldBindJSON(&items); errBind != nil || len(items) == 0 {
		fail(c, http.StatusBadRequest, MsgMissingData)
		return
	}
	if len(items) > maxImportRows {
		fail(c, http.StatusBadRequest, fmt.Sprintf(MsgImportTooLarge, maxImportRows))
		return
	}

	var target schema.Table
	rows := make([]map[schema.Column]any, 0, len(items))
	for i, item := range items {
		fields, errFields := scalarFields(item)
		if errFields != nil {
			fail(c, http.StatusBadRequest, fmt.Sprintf(MsgImportRowInvalid, i+1))
			return
		}
		t, values, errPrepare := h.engine.PrepareInsert(table, fields)
		if errPrepare != nil {
			h.reject(c, "import", errPrepare)
			return
		}
		target = t
		rows = append(rows, values)
	}
	label := string(target)

	ids, errInsert := h.store.InsertAll(c.Request.Context(), target, rows)
	if errInsert != nil {
		if errors.Is(errInsert, records.ErrDuplicate) {
			metrics.ObserveMutation("import", label, metrics.OutcomeConflict)
			fail(c, http.StatusConflict, MsgDatabaseError)
			return
		}
		log.WithError(errInsert).WithFields(log.Fields{"table": label, "rows": len(rows)}).Error("import records")
		metrics.ObserveMutation("import", label, metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}

	h.activity.Record(c.Request.Context(), activity.ImportAction(target), activity.ImportDetails(len(ids)))
	metrics.ObserveMutation("import", label, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf(MsgImported, len(ids)),
		"imported": len(ids),
		"ids":      ids,
	})
}

// List returns the rows of a registry table. The clients listing is
// enriched with each row's expiry status and can be filtered by it.
func (h *RecordsHandler) List(c *gin.Context) {
	spec, ok := h.engine.Registry().Lookup(c.Param("table"))
	if !ok {
		fail(c, http.StatusBadRequest, MsgInvalidTable)
		return
	}
	ctx := c.Request.Context()

	if spec.Name == schema.Clients {
		rows, errList := h.store.ListClients(ctx, records.ClientFilter{Search: strings.TrimSpace(c.Query("search"))})
		if errList != nil {
			log.WithError(errList).Error("list clients")
			fail(c, http.StatusInternalServerError, MsgDatabaseError)
			return
		}
		today := h.clock.Today(ctx)
		status := strings.TrimSpace(c.Query("status"))
		out := make([]gin.H, 0, len(rows))
		for _, row := range rows {
			view := clientView(row, today)
			if status != "" && string(view.status) != status {
				continue
			}
			out = append(out, view.body)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "records": out})
		return
	}

	limit := defaultListLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if n, errAtoi := strconv.Atoi(raw); errAtoi == nil && n > 0 {
			limit = min(n, maxListLimit)
		}
	}
	offset := 0
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if n, errAtoi := strconv.Atoi(raw); errAtoi == nil && n > 0 {
			offset = n
		}
	}
	rows, errList := h.store.List(ctx, spec.Name, records.ListOptions{Limit: limit, Offset: offset})
	if errList != nil {
		log.WithError(errList).WithField("table", spec.Name).Error("list records")
		fail(c, http.StatusInternalServerError, MsgDatabaseError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "records": rows})
}

func (h *RecordsHandler) reject(c *gin.Context, operation string, err error) {
	var rej *policy.Rejection
	if !errors.As(err, &rej) {
		log.WithError(err).Error("evaluate mutation")
		metrics.ObserveMutation(operation, "", metrics.OutcomeError)
		fail(c, http.StatusInternalServerError, MsgServerError)
		return
	}
	label := h.tableLabel(rej.Table)
	switch rej.Reason {
	case policy.ReasonInvalidFormat:
		metrics.ObserveMutation(operation, label, metrics.OutcomeRejected)
		fail(c, http.StatusBadRequest, MsgInvalidFieldValue+" "+rej.Field)
	case policy.ReasonUnknownTable:
		metrics.ObserveMutation(operation, "", metrics.OutcomeRejected)
		if operation == "update" {
			fail(c, http.StatusBadRequest, MsgInvalidTableOrField)
		} else {
			fail(c, http.StatusBadRequest, MsgInvalidTable)
		}
	default:
		metrics.ObserveMutation(operation, label, metrics.OutcomeRejected)
		fail(c, http.StatusBadRequest, MsgInvalidTableOrField)
	}
}

// tableLabel returns the registry name of table, or "" when it is not declared.
func (h *RecordsHandler) tableLabel(table string) string {
	spec, ok := h.engine.Registry().Lookup(table)
	if !ok {
		return ""
	}
	return string(spec.Name)
}

func (h *RecordsHandler) isClients(table string) bool {
	return h.tableLabel(table) == string(schema.Clients)
}
