// Package modelconnect derives persistence and exposure configuration for
// plain Go record types and compiles SQL statements from it.
//
// A record type is connected once, usually from an init function or at the
// start of main. Connecting resolves its configuration graph: the model
// names, query parameter labels, per-field capabilities and the settings of
// every registered integration ("database", "http-api").
//
//	type Person struct {
//		ID   int `model:",id"`
//		Name string
//		Age  int
//	}
//
//	func init() {
//		modelconnect.MustConnect[Person](nil)
//	}
//
//	stmt, err := modelconnect.BuildSelect[Person](sql.SelectOptions{
//		Filter: sql.Filter{{Field: "age", Value: sql.Ops{{Operator: ">=", Value: 18}}}},
//		Sort:   sql.Sort{{Field: "name", Direction: "asc"}},
//	})
//	// SELECT id, name, age FROM person WHERE age >= $1 ORDER BY name ASC
//
// Unknown fields and unsupported directions in query options are skipped
// silently, so loosely validated user input can be passed through.
// Misconfiguration and lookups of unknown types fail with a ConfigError or a
// LookupError.
package modelconnect

import (
	"context"
	"iter"
	"reflect"

	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/options"
	"github.com/syssam/modelconnect/schema/field"
)

// Default is the process-wide registry used by the package level functions.
// It compiles statements for PostgreSQL.
var Default = newRegistry()

// Connect connects T to the Default registry. o may be nil.
func Connect[T any](o *options.ConnectOptions) error {
	return Default.Connect(reflect.TypeFor[T](), o)
}

// MustConnect is like Connect but panics on error.
func MustConnect[T any](o *options.ConnectOptions) {
	if err := Connect[T](o); err != nil {
		panic(err)
	}
}

// GetModel returns the resolved root model configuration of T.
func GetModel[T any]() (*options.Model, error) {
	return Default.Model(reflect.TypeFor[T]())
}

// GetModelConfig returns the model configuration of T owned by the named
// integration.
//
//	mc, err := modelconnect.GetModelConfig[Person](sql.IntegrationName)
//	table := mc.(*sql.Model).QualifiedTable()
func GetModelConfig[T any](integration string) (options.ModelConfig, error) {
	return Default.ModelConfig(reflect.TypeFor[T](), integration)
}

// GetField returns the resolved configuration of a field of T.
func GetField[T any](name string) (*options.ModelField, error) {
	return Default.Field(reflect.TypeFor[T](), name)
}

// GetFieldConfig returns the configuration of a field of T owned by the
// named integration.
func GetFieldConfig[T any](name, integration string) (options.FieldConfig, error) {
	return Default.FieldConfig(reflect.TypeFor[T](), name, integration)
}

// BuildSelect compiles a SELECT statement for T.
func BuildSelect[T any](opts sql.SelectOptions) (*sql.Statement, error) {
	return Default.Select(reflect.TypeFor[T](), opts)
}

// BuildInsert compiles an INSERT statement for T. rows is a T, a *T, a
// map[string]any or a slice of those.
func BuildInsert[T any](rows any, opts sql.InsertOptions) (*sql.Statement, error) {
	return Default.Insert(reflect.TypeFor[T](), rows, opts)
}

// Query runs a SELECT for T against ex and yields the matching records.
// T must be a struct type connected to r.
func Query[T any](ctx context.Context, r *Registry, ex dialect.ExecQuerier, opts sql.SelectOptions, so ...sql.StreamOption) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		t := reflect.TypeFor[T]()
		if t.Kind() != reflect.Struct {
			yield(zero, &LookupError{Type: t.String(), Cause: field.ErrNotRecord})
			return
		}
		for rv, err := range r.Query(ctx, ex, t, opts, so...) {
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(rv.Interface().(T), nil) {
				return
			}
		}
	}
}
