package sql

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/options"
	"github.com/syssam/modelconnect/schema/field"
)

// Compile errors.
var (
	// ErrUnknownColumn is returned for explicit column lists naming no field.
	ErrUnknownColumn = errors.New("sql: unknown column")
	// ErrEmptyBatch is returned when inserting zero rows.
	ErrEmptyBatch = errors.New("sql: no rows to insert")
	// ErrInvalidRow is returned for insert rows of an unexpected shape.
	ErrInvalidRow = errors.New("sql: invalid row")
)

// Select compiles a SELECT statement for the resolved options co.
//
//	SELECT id, name, age FROM person WHERE id = $1 AND name != $2 ORDER BY age DESC LIMIT $3
//
// Clauses are only emitted when their processor produced a result.
func Select(co *options.ConnectOptions, opts SelectOptions) (*Statement, error) {
	return SelectAs(co, opts, dialect.Dollar)
}

// SelectAs is like Select with an explicit placeholder style.
func SelectAs(co *options.ConnectOptions, opts SelectOptions, style dialect.Placeholder) (*Statement, error) {
	m, err := ModelOf(co)
	if err != nil {
		return nil, err
	}
	columns, err := selectColumns(co, opts.Columns)
	if err != nil {
		return nil, err
	}
	var (
		args    = []any{}
		clauses = ProcessFilter(co, opts.Filter, &args)
		pager   = ProcessPagination(opts.Pagination, &args)
		groups  = ProcessGroupBy(co, opts.GroupBy)
		terms   = ProcessSort(co, opts.Sort)
		b       = &Builder{}
	)
	b.WriteString("SELECT ")
	if len(columns) == 0 {
		b.WriteString("*")
	} else {
		b.Join(", ", columns)
	}
	b.WriteString(" FROM ").WriteString(m.QualifiedTable())
	whereClause(b, clauses)
	groupByClause(b, groups)
	orderByClause(b, terms)
	if pager.HasLimit {
		b.WriteString(" LIMIT ").Placeholder()
	}
	if pager.HasSkip {
		b.WriteString(" OFFSET ").Placeholder()
	}
	stmt, err := b.Statement(args, style)
	if err != nil {
		return nil, err
	}
	return stmt.label(KindSelect, m.QualifiedTable()), nil
}

func whereClause(b *Builder, clauses []Clause) {
	if len(clauses) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	for i, c := range clauses {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(c.Column).Pad().WriteString(c.Operator).Pad().Placeholder()
	}
}

func groupByClause(b *Builder, columns []string) {
	if len(columns) == 0 {
		return
	}
	b.WriteString(" GROUP BY ").Join(", ", columns)
}

func orderByClause(b *Builder, terms []OrderTerm) {
	if len(terms) == 0 {
		return
	}
	b.WriteString(" ORDER BY ")
	for i, t := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Column).Pad().WriteString(t.Direction)
	}
}

// Insert compiles an INSERT statement for the given rows. rows is a
// record, a pointer to a record, a map[string]any keyed by field or column
// name, or a slice of any of those. All row values are bound as a single
// Batch parameter; see Expand.
//
//	INSERT INTO person (name, age) VALUES $1 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, age = EXCLUDED.age RETURNING *
func Insert(co *options.ConnectOptions, rows any, opts InsertOptions) (*Statement, error) {
	return InsertAs(co, rows, opts, dialect.Dollar)
}

// InsertAs is like Insert with an explicit placeholder style.
func InsertAs(co *options.ConnectOptions, rows any, opts InsertOptions, style dialect.Placeholder) (*Statement, error) {
	m, err := ModelOf(co)
	if err != nil {
		return nil, err
	}
	cols, err := insertColumns(co, opts.Columns)
	if err != nil {
		return nil, err
	}
	conflict, err := ProcessOnConflict(co, opts.OnConflict)
	if err != nil {
		return nil, err
	}
	batch, err := rowValues(co, cols, rows)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(cols))
	for i, c := range cols {
		columns[i] = c.column
	}
	b := &Builder{}
	b.WriteString("INSERT INTO ").WriteString(m.QualifiedTable()).
		WriteString(" (").Join(", ", columns).WriteString(")").
		WriteString(" VALUES ").Arg(batch)
	if err := onConflictClause(b, co, conflict); err != nil {
		return nil, err
	}
	b.WriteString(" RETURNING *")
	stmt, err := b.Statement(nil, style)
	if err != nil {
		return nil, err
	}
	return stmt.label(KindInsert, m.QualifiedTable()), nil
}

func onConflictClause(b *Builder, co *options.ConnectOptions, c *Conflict) error {
	if c == nil {
		return nil
	}
	b.WriteString(" ON CONFLICT")
	if len(c.Targets) > 0 {
		b.WriteString(" (").Join(", ", c.Targets).WriteString(")")
	}
	if c.Do == DoNothing {
		b.WriteString(" DO NOTHING")
		return nil
	}
	if len(c.Targets) == 0 || len(c.Updates) == 0 {
		return &options.ConfigError{
			Type:    co.Model.Single(),
			Option:  "do",
			Message: "update on conflict needs at least one conflict target and one update column",
		}
	}
	b.WriteString(" DO UPDATE SET ")
	for i, col := range c.Updates {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col).WriteString(" = EXCLUDED.").WriteString(col)
	}
	return nil
}

type column struct {
	name   string // field name.
	column string
	field  *Field
	desc   *field.Descriptor
}

// resolveColumn finds a field by field name or column name.
func resolveColumn(co *options.ConnectOptions, name string) (column, bool) {
	for _, fname := range co.Fields.Names() {
		mf, f, ok := lookupField(co, fname)
		if !ok {
			continue
		}
		if fname == name || f.Column.Or(fname) == name {
			return column{name: fname, column: f.Column.Or(fname), field: f, desc: mf.Descriptor()}, true
		}
	}
	return column{}, false
}

func defaultColumns(co *options.ConnectOptions, include func(*Field) bool) []column {
	var cols []column
	for _, name := range co.Fields.Names() {
		mf, f, ok := lookupField(co, name)
		if ok && include(f) {
			cols = append(cols, column{name: name, column: f.Column.Or(name), field: f, desc: mf.Descriptor()})
		}
	}
	return cols
}

func explicitColumns(co *options.ConnectOptions, names []string) ([]column, error) {
	cols := make([]column, 0, len(names))
	for _, name := range names {
		c, ok := resolveColumn(co, name)
		if !ok {
			return nil, &options.LookupError{Type: co.Model.Single(), Integration: IntegrationName, Field: name, Cause: ErrUnknownColumn}
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func selectColumns(co *options.ConnectOptions, names []string) ([]string, error) {
	var (
		cols []column
		err  error
	)
	if len(names) > 0 {
		cols, err = explicitColumns(co, names)
	} else {
		cols = defaultColumns(co, func(f *Field) bool { return f.IncludeInSelect.Or(true) })
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.column
	}
	return out, nil
}

// InsertColumns returns the default insert column list of co.
func InsertColumns(co *options.ConnectOptions) []string {
	cols := defaultColumns(co, func(f *Field) bool { return f.IncludeInInsert.Or(true) })
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.column
	}
	return out
}

func insertColumns(co *options.ConnectOptions, names []string) ([]column, error) {
	if len(names) > 0 {
		return explicitColumns(co, names)
	}
	cols := defaultColumns(co, func(f *Field) bool { return f.IncludeInInsert.Or(true) })
	if len(cols) == 0 {
		return nil, &options.ConfigError{Type: co.Model.Single(), Message: "no insertable columns"}
	}
	return cols, nil
}

// rowValues extracts the column values of every row into a Batch.
func rowValues(co *options.ConnectOptions, cols []column, rows any) (Batch, error) {
	items, err := rowItems(co, rows)
	if err != nil {
		return Batch{}, err
	}
	if len(items) == 0 {
		return Batch{}, ErrEmptyBatch
	}
	batch := Batch{rows: make([][]any, len(items))}
	for i, item := range items {
		vs := make([]any, len(cols))
		for j, c := range cols {
			v, err := columnValue(item, c)
			if err != nil {
				return Batch{}, fmt.Errorf("row %d: %w", i, err)
			}
			if c.field.Encoder != nil {
				if v, err = c.field.Encoder(v); err != nil {
					return Batch{}, fmt.Errorf("row %d: encode %s: %w", i, c.column, err)
				}
			}
			vs[j] = v
		}
		batch.rows[i] = vs
	}
	return batch, nil
}

var mapType = reflect.TypeOf(map[string]any(nil))

// rowItems normalizes rows into struct values or maps.
func rowItems(co *options.ConnectOptions, rows any) ([]any, error) {
	if rows == nil {
		return nil, ErrEmptyBatch
	}
	rv := reflect.ValueOf(rows)
	if rv.Kind() == reflect.Slice && rv.Type().Elem() != reflect.TypeOf(byte(0)) {
		items := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := rowItem(co, rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			items = append(items, item)
		}
		return items, nil
	}
	item, err := rowItem(co, rv)
	if err != nil {
		return nil, err
	}
	return []any{item}, nil
}

func rowItem(co *options.ConnectOptions, rv reflect.Value) (any, error) {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil row", ErrInvalidRow)
		}
		rv = rv.Elem()
	}
	switch {
	case rv.Type() == co.Type():
		return rv, nil
	case rv.Type().ConvertibleTo(mapType) && rv.Kind() == reflect.Map:
		return rv.Convert(mapType).Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s is not %s", ErrInvalidRow, rv.Type(), co.Type())
}

func columnValue(item any, c column) (any, error) {
	switch item := item.(type) {
	case reflect.Value:
		return c.desc.Value(item), nil
	case map[string]any:
		if v, ok := item[c.name]; ok {
			return v, nil
		}
		if v, ok := item[c.column]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: missing column %q", ErrInvalidRow, c.column)
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidRow, item)
}

// Count compiles a SELECT COUNT(*) statement honoring the filter of opts.
// Sort, pagination, grouping and columns are ignored.
func Count(co *options.ConnectOptions, opts SelectOptions) (*Statement, error) {
	return CountAs(co, opts, dialect.Dollar)
}

// CountAs is like Count with an explicit placeholder style.
func CountAs(co *options.ConnectOptions, opts SelectOptions, style dialect.Placeholder) (*Statement, error) {
	m, err := ModelOf(co)
	if err != nil {
		return nil, err
	}
	args := []any{}
	clauses := ProcessFilter(co, opts.Filter, &args)
	b := &Builder{}
	b.WriteString("SELECT COUNT(*) FROM ").WriteString(m.QualifiedTable())
	whereClause(b, clauses)
	stmt, err := b.Statement(args, style)
	if err != nil {
		return nil, err
	}
	return stmt.label(KindCount, m.QualifiedTable()), nil
}
