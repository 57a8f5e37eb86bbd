package schema

import "strings"

// Table is a trusted table identifier. Values only originate from a Registry.
type Table string

// Column is a trusted column identifier. Values only originate from a Registry.
type Column string

// Kind selects the coercion applied to a raw field value.
type Kind int

// Field kinds known to the policy engine.
const (
	// KindText keeps the trimmed string value.
	KindText Kind = iota
	// KindBool normalises checkbox-like values to true/false.
	KindBool
	// KindDate accepts calendar dates in DateLayout.
	KindDate
	// KindInt accepts base-10 integers inside [Min, Max].
	KindInt
	// KindDecimal accepts non-negative decimal numbers.
	KindDecimal
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// String returns a lower-case kind name for logs and errors.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	default:
		return "unknown"
	}
}

// Field describes one externally writable column.
type Field struct {
	Column    Column // Column identifier.
	Kind      Kind   // Coercion kind.
	MinLength int    // Minimum trimmed length for text values.
	Min       int64  // Inclusive lower bound for KindInt.
	Max       int64  // Inclusive upper bound for KindInt.
}

// TableSpec describes one externally mutable table.
type TableSpec struct {
	Name      Table   // Table identifier.
	Fields    []Field // Writable fields in declaration order.
	Deletable bool    // Whether rows may be deleted through the generic endpoint.
	Touch     bool    // Whether updates also bump updated_at.
	// FixedColumn, when set, is the only column an update may write,
	// whatever field name the caller submitted.
	FixedColumn Column
}

// Field returns the writable field with the given name.
func (t TableSpec) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if string(f.Column) == name {
			return f, true
		}
	}
	return Field{}, false
}

// Registry is the static allow-list of writable tables and fields.
// Anything not declared here is forbidden.
type Registry struct {
	order  []Table
	tables map[Table]TableSpec
}

// NewRegistry builds a registry from table specs. Later duplicates replace earlier ones.
func NewRegistry(specs ...TableSpec) *Registry {
	r := &Registry{tables: make(map[Table]TableSpec, len(specs))}
	for _, spec := range specs {
		if _, exists := r.tables[spec.Name]; !exists {
			r.order = append(r.order, spec.Name)
		}
		r.tables[spec.Name] = spec
	}
	return r
}

// Lookup returns the table spec for an untrusted table name.
func (r *Registry) Lookup(name string) (TableSpec, bool) {
	if r == nil {
		return TableSpec{}, false
	}
	spec, ok := r.tables[Table(strings.TrimSpace(name))]
	return spec, ok
}

// Tables returns all declared tables in declaration order.
func (r *Registry) Tables() []TableSpec {
	if r == nil {
		return nil
	}
	out := make([]TableSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tables[name])
	}
	return out
}

// Deletable returns the tables the generic delete endpoint may target.
func (r *Registry) Deletable() []Table {
	var out []Table
	for _, spec := range r.Tables() {
		if spec.Deletable {
			out = append(out, spec.Name)
		}
	}
	return out
}
