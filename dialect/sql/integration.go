package sql

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/modelconnect/opt"
	"github.com/syssam/modelconnect/options"
)

// IntegrationName is the name the database integration registers under.
const IntegrationName = "database"

func init() {
	options.Register(options.Integration{
		Name:     IntegrationName,
		NewModel: func() options.ModelConfig { return &Model{} },
		NewField: func() options.FieldConfig { return &Field{} },
	})
}

// Model holds the database settings of a record type.
//
//	sql.Model{Table: opt.Some("people")}
//	sql.Table("people") // same as above
type Model struct {
	// Table defaults to the lower-cased type name. The plural name does not
	// affect it.
	Table opt.Value[string]

	// Schema qualifies the table when set.
	Schema opt.Value[string]
}

// Table returns a model override setting the table name.
func Table(name string) *Model {
	return &Model{Table: opt.Some(name)}
}

// Integration implements options.ModelConfig.
func (*Model) Integration() string { return IntegrationName }

// Resolve implements options.ModelConfig.
func (m *Model) Resolve(ctx *options.ModelContext) error {
	opt.CoalesceFunc(&m.Table, func() string {
		return cases.Lower(language.Und).String(ctx.Model.Single())
	})
	return nil
}

// Clone implements options.ModelConfig.
func (m *Model) Clone() options.ModelConfig {
	c := *m
	return &c
}

// QualifiedTable returns the table name, prefixed with the schema if set.
func (m *Model) QualifiedTable() string {
	if s, ok := m.Schema.Get(); ok && s != "" {
		return s + "." + m.Table.Or("")
	}
	return m.Table.Or("")
}

// Codec converts a field value on its way to or from the database.
type Codec func(any) (any, error)

// Field holds the database settings of a record field.
type Field struct {
	// Column defaults to the field name.
	Column opt.Value[string]

	// CanFilter and CanSort default to the flags of the root field.
	CanFilter opt.Value[bool]
	CanSort   opt.Value[bool]
	// CanGroup defaults to true.
	CanGroup opt.Value[bool]

	// CanBeConflictTarget defaults to true for identifier fields.
	CanBeConflictTarget opt.Value[bool]
	// IncludeInInsert defaults to false for identifiers and nested records.
	IncludeInInsert opt.Value[bool]
	// IncludeInSelect defaults to false for nested records.
	IncludeInSelect opt.Value[bool]
	// IncludeInOnConflictUpdate defaults to false for identifiers and nested records.
	IncludeInOnConflictUpdate opt.Value[bool]

	// Encoder is applied to values bound as insert parameters.
	Encoder Codec
	// Decoder is applied to column values scanned from result rows.
	Decoder Codec
}

// Column returns a field override setting the column name.
func Column(name string) *Field {
	return &Field{Column: opt.Some(name)}
}

// Integration implements options.FieldConfig.
func (*Field) Integration() string { return IntegrationName }

// Resolve implements options.FieldConfig.
func (f *Field) Resolve(ctx *options.FieldContext) error {
	root := ctx.Field
	var (
		id     = root.IsIdentifier.Or(false)
		record = root.Descriptor() != nil && root.Descriptor().IsRecord()
	)
	opt.Coalesce(&f.Column, root.Name())
	opt.Coalesce(&f.CanFilter, root.CanFilter.Or(true))
	opt.Coalesce(&f.CanSort, root.CanSort.Or(true))
	opt.Coalesce(&f.CanGroup, true)
	opt.Coalesce(&f.CanBeConflictTarget, id)
	opt.Coalesce(&f.IncludeInInsert, !id && !record)
	opt.Coalesce(&f.IncludeInSelect, !record)
	opt.Coalesce(&f.IncludeInOnConflictUpdate, !id && !record)
	return nil
}

// Clone implements options.FieldConfig.
func (f *Field) Clone() options.FieldConfig {
	c := *f
	return &c
}

// ModelOf returns the resolved database model of the options.
func ModelOf(co *options.ConnectOptions) (*Model, error) {
	if co == nil || co.Model == nil {
		return nil, &options.LookupError{Integration: IntegrationName}
	}
	c, ok := co.Model.Integration(IntegrationName)
	if !ok {
		return nil, &options.LookupError{Type: co.Model.Single(), Integration: IntegrationName}
	}
	return c.(*Model), nil
}

// FieldOf returns the resolved database configuration of a field.
func FieldOf(f *options.ModelField) (*Field, bool) {
	if f == nil {
		return nil, false
	}
	c, ok := f.Integration(IntegrationName)
	if !ok {
		return nil, false
	}
	return c.(*Field), true
}

// lookupField resolves a field name to its root and database configuration.
func lookupField(co *options.ConnectOptions, name string) (*options.ModelField, *Field, bool) {
	mf, ok := co.Field(name)
	if !ok {
		return nil, nil, false
	}
	df, ok := FieldOf(mf)
	return mf, df, ok
}
