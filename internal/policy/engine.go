// Package policy decides whether a generic record mutation is allowed and
// coerces submitted values into their typed form. Decisions are pure: they
// depend only on the registry and the arguments.
package policy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tvpanel/tvpanel/internal/schema"
	"gorm.io/datatypes"
)

// Reason classifies a policy rejection.
type Reason string

// Rejection reasons.
const (
	ReasonUnknownTable  Reason = "unknown_table"
	ReasonUnknownField  Reason = "unknown_field"
	ReasonInvalidFormat Reason = "invalid_format"
)

// Rejection is returned when a mutation is not permitted.
type Rejection struct {
	Reason Reason
	Table  string
	Field  string
	Detail string
}

// Error implements error.
func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonUnknownTable:
		return fmt.Sprintf("policy: unknown table %q", r.Table)
	case ReasonUnknownField:
		return fmt.Sprintf("policy: unknown field %q on table %q", r.Field, r.Table)
	default:
		return fmt.Sprintf("policy: invalid value for %s.%s: %s", r.Table, r.Field, r.Detail)
	}
}

// Target is an authorised (table, column) pair. Both identifiers come from the registry.
type Target struct {
	Table schema.Table
	Field schema.Field
	Touch bool
}

// Column returns the column the update writes.
func (t Target) Column() schema.Column { return t.Field.Column }

// Update is an authorised and coerced single-field update.
type Update struct {
	Target
	Value any
}

// Engine evaluates mutations against a registry.
type Engine struct {
	registry *schema.Registry
}

// New constructs an Engine. A nil registry falls back to schema.Default.
func New(registry *schema.Registry) *Engine {
	if registry == nil {
		registry = schema.Default
	}
	return &Engine{registry: registry}
}

// Registry returns the registry the engine evaluates against.
func (e *Engine) Registry() *schema.Registry { return e.registry }

// AuthorizeFieldUpdate checks that field is writable on table.
// A table with a fixed column authorises any field name and always targets that column.
func (e *Engine) AuthorizeFieldUpdate(table, field string) (Target, error) {
	spec, ok := e.registry.Lookup(table)
	if !ok {
		return Target{}, &Rejection{Reason: ReasonUnknownTable, Table: table, Field: field}
	}
	name := strings.TrimSpace(field)
	if spec.FixedColumn != "" {
		if name == "" {
			return Target{}, &Rejection{Reason: ReasonUnknownField, Table: table, Field: field}
		}
		name = string(spec.FixedColumn)
	}
	f, ok := spec.Field(name)
	if !ok {
		return Target{}, &Rejection{Reason: ReasonUnknownField, Table: table, Field: field}
	}
	return Target{Table: spec.Name, Field: f, Touch: spec.Touch}, nil
}

// AuthorizeDelete checks that rows of table may be deleted.
func (e *Engine) AuthorizeDelete(table string) (schema.Table, error) {
	spec, ok := e.registry.Lookup(table)
	if !ok || !spec.Deletable {
		return "", &Rejection{Reason: ReasonUnknownTable, Table: table}
	}
	return spec.Name, nil
}

// CoerceValue authorises (table, field) and converts raw into the field's typed value.
func (e *Engine) CoerceValue(table, field, raw string) (any, error) {
	target, err := e.AuthorizeFieldUpdate(table, field)
	if err != nil {
		return nil, err
	}
	return Coerce(target.Field, string(target.Table), raw)
}

// PrepareUpdate authorises and coerces a single-field update.
func (e *Engine) PrepareUpdate(table, field, raw string) (Update, error) {
	target, err := e.AuthorizeFieldUpdate(table, field)
	if err != nil {
		return Update{}, err
	}
	value, err := Coerce(target.Field, string(target.Table), raw)
	if err != nil {
		return Update{}, err
	}
	return Update{Target: target, Value: value}, nil
}

// PrepareInsert authorises and coerces every submitted column of a new row.
// Required text fields missing from values are rejected.
func (e *Engine) PrepareInsert(table string, values map[string]string) (schema.Table, map[schema.Column]any, error) {
	spec, ok := e.registry.Lookup(table)
	if !ok || spec.FixedColumn != "" {
		return "", nil, &Rejection{Reason: ReasonUnknownTable, Table: table}
	}
	for name := range values {
		if _, ok := spec.Field(name); !ok {
			return "", nil, &Rejection{Reason: ReasonUnknownField, Table: table, Field: name}
		}
	}
	out := make(map[schema.Column]any, len(spec.Fields))
	for _, f := range spec.Fields {
		raw, present := values[string(f.Column)]
		if !present && f.MinLength == 0 {
			continue
		}
		value, err := Coerce(f, table, raw)
		if err != nil {
			return "", nil, err
		}
		out[f.Column] = value
	}
	return spec.Name, out, nil
}

// Coerce converts raw into the typed value for f.
func Coerce(f schema.Field, table, raw string) (any, error) {
	reject := func(detail string) error {
		return &Rejection{Reason: ReasonInvalidFormat, Table: table, Field: string(f.Column), Detail: detail}
	}
	trimmed := strings.TrimSpace(raw)
	switch f.Kind {
	case schema.KindText:
		if utf8.RuneCountInString(trimmed) < f.MinLength {
			return nil, reject(fmt.Sprintf("must be at least %d characters", f.MinLength))
		}
		return trimmed, nil
	case schema.KindBool:
		b, ok := ParseBool(trimmed)
		if !ok {
			return nil, reject("expected a boolean")
		}
		return b, nil
	case schema.KindDate:
		d, ok := ParseDate(trimmed)
		if !ok {
			return nil, reject("expected a date in YYYY-MM-DD format")
		}
		return datatypes.Date(d), nil
	case schema.KindInt:
		n, errParse := strconv.ParseInt(trimmed, 10, 64)
		if errParse != nil {
			return nil, reject("expected an integer")
		}
		if n < f.Min || n > f.Max {
			return nil, reject(fmt.Sprintf("must be between %d and %d", f.Min, f.Max))
		}
		return int(n), nil
	case schema.KindDecimal:
		if trimmed == "" {
			return 0.0, nil
		}
		v, errParse := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", "."), 64)
		if errParse != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, reject("expected a number")
		}
		if v < 0 {
			return nil, reject("must not be negative")
		}
		return math.Round(v*100) / 100, nil
	default:
		return nil, reject("unsupported field kind " + f.Kind.String())
	}
}

// ParseBool normalises checkbox, form and JSON boolean spellings.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes", "y", "tak":
		return true, true
	case "", "0", "false", "off", "no", "n", "nie":
		return false, true
	default:
		return false, false
	}
}

// ParseDate parses a strict YYYY-MM-DD calendar date; normalised dates such as 2026-02-30 are rejected.
func ParseDate(raw string) (time.Time, bool) {
	d, err := time.Parse(schema.DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	if d.Format(schema.DateLayout) != raw {
		return time.Time{}, false
	}
	return d, true
}
