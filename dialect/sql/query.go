package sql

import (
	"reflect"
	"slices"

	"github.com/syssam/modelconnect/opt"
)

// Where filters on a single field. Value is one of:
//
//   - a scalar, compared with "=" (nil compares with "IS")
//   - a slice, array or Tuple, tested with "IN"
//   - Ops, applying every operator in order
//   - map[string]any, like Ops with operators applied in sorted order
type Where struct {
	Field string
	Value any
}

// Filter is an ordered list of field filters. Clauses and parameters are
// emitted in list order.
type Filter []Where

// Op applies one operator to a field. For operators other than IN and
// NOT IN, a sequence Value yields one clause per element.
type Op struct {
	Operator string
	Value    any
}

// Ops is an ordered list of operators applied to one field.
type Ops []Op

// Order sorts on a single field. Direction is "asc" or "desc" in any case.
type Order struct {
	Field     string
	Direction string
}

// Sort is an ordered list of sort terms. Earlier terms take precedence.
type Sort []Order

// Pagination holds the optional limit and skip values. Values are bound
// uninterpreted.
type Pagination struct {
	Limit opt.Value[any]
	Skip  opt.Value[any]
}

// Page returns a Pagination with both values set.
func Page(limit, skip any) *Pagination {
	return &Pagination{Limit: opt.Some(limit), Skip: opt.Some(skip)}
}

// GroupBy lists the fields to group by.
type GroupBy []string

// Conflict actions.
const (
	DoNothing = "nothing"
	DoUpdate  = "update"
)

// OnConflict configures the ON CONFLICT clause of an INSERT statement.
// ConflictTargets and UpdateColumns, when set, restrict the default sets.
type OnConflict struct {
	Do              string
	ConflictTargets opt.Value[[]string]
	UpdateColumns   opt.Value[[]string]
}

// SelectOptions configures a SELECT statement.
type SelectOptions struct {
	Filter     Filter
	Sort       Sort
	Pagination *Pagination
	GroupBy    GroupBy
	// Columns restricts the selected columns. Defaults to every field
	// included in select.
	Columns []string
}

// InsertOptions configures an INSERT statement.
type InsertOptions struct {
	// Columns overrides the inserted columns. Defaults to every field
	// included in insert.
	Columns    []string
	OnConflict *OnConflict
}

// Tuple is an immutable ordered list of values bound as a single parameter,
// as used by IN and NOT IN.
type Tuple struct {
	vs []any
}

// NewTuple returns a tuple holding a copy of vs.
func NewTuple(vs ...any) Tuple {
	return Tuple{vs: slices.Clone(vs)}
}

// Len returns the number of values in the tuple.
func (t Tuple) Len() int { return len(t.vs) }

// Values returns a copy of the tuple values.
func (t Tuple) Values() []any { return slices.Clone(t.vs) }

// Batch holds the row values of an INSERT statement, bound as a single
// parameter.
type Batch struct {
	rows [][]any
}

// NewBatch returns a batch holding a copy of rows.
func NewBatch(rows ...[]any) Batch {
	b := Batch{rows: make([][]any, len(rows))}
	for i, r := range rows {
		b.rows[i] = slices.Clone(r)
	}
	return b
}

// Len returns the number of rows.
func (b Batch) Len() int { return len(b.rows) }

// Rows returns a copy of the batch rows.
func (b Batch) Rows() [][]any {
	rows := make([][]any, len(b.rows))
	for i, r := range b.rows {
		rows[i] = slices.Clone(r)
	}
	return rows
}

var bytesType = reflect.TypeOf([]byte(nil))

// sequence returns the elements of v if it is a sequence value.
func sequence(v any) ([]any, bool) {
	switch v := v.(type) {
	case nil:
		return nil, false
	case Tuple:
		return v.Values(), true
	case []any:
		return slices.Clone(v), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type() == bytesType || rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		vs := make([]any, rv.Len())
		for i := range vs {
			vs[i] = rv.Index(i).Interface()
		}
		return vs, true
	}
	return nil, false
}
