package modelconnect

import (
	"context"
	"iter"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/internal/metrics"
	"github.com/syssam/modelconnect/options"
	"github.com/syssam/modelconnect/schema/field"
)

type snapshot = map[reflect.Type]*options.ConnectOptions

// Registry maps record types to their resolved configuration.
//
// Connect is meant to run during start-up. Every successful Connect
// publishes a new immutable snapshot, so lookups and statement compilation
// never block and are safe for any number of concurrent readers.
type Registry struct {
	logger   *zap.Logger
	dialect  string
	style    dialect.Placeholder
	styleSet bool // style chosen with WithPlaceholder.

	mu   sync.Mutex // serializes writers.
	snap atomic.Pointer[snapshot]
}

// NewRegistry returns an empty registry configured by opts.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := newRegistry()
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func newRegistry() *Registry {
	r := &Registry{
		logger:  zap.NewNop(),
		dialect: dialect.Postgres,
		style:   dialect.Dollar,
	}
	r.snap.Store(&snapshot{})
	return r
}

// Dialect returns the dialect statements are compiled for.
func (r *Registry) Dialect() string { return r.dialect }

// Placeholder returns the placeholder style of compiled statements.
func (r *Registry) Placeholder() dialect.Placeholder { return r.style }

// Connect resolves o against the record type t and registers the result.
// A nil o connects the type with default options. The caller must not use
// o afterwards; the registry keeps its own copy.
//
// Connecting a type twice, or a type that is not a struct, is a
// configuration error.
func (r *Registry) Connect(t reflect.Type, o *options.ConnectOptions) error {
	st, err := field.Indirect(t)
	if err != nil {
		return &ConfigError{Type: typeString(t), Cause: err}
	}
	if _, ok := r.load()[st]; ok {
		return alreadyConnected(st.Name())
	}
	if o == nil {
		o = &options.ConnectOptions{}
	}
	if err := o.Resolve(st); err != nil {
		return err
	}
	co := o.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.load()
	if _, ok := cur[st]; ok {
		return alreadyConnected(st.Name())
	}
	next := maps.Clone(cur)
	next[st] = co
	r.snap.Store(&next)

	metrics.ModelsConnected.Inc()
	r.logger.Debug("model connected",
		zap.String("type", st.String()),
		zap.String("name", co.Model.Single()),
		zap.Int("fields", co.Fields.Len()),
		zap.Strings("integrations", co.Model.IntegrationNames()),
	)
	return nil
}

// Connected reports whether t was connected.
func (r *Registry) Connected(t reflect.Type) bool {
	_, err := r.lookup(t)
	return err == nil
}

// Types returns the connected record types ordered by model name.
func (r *Registry) Types() []reflect.Type {
	snap := r.load()
	types := slices.Collect(maps.Keys(snap))
	slices.SortFunc(types, func(a, b reflect.Type) int {
		return strings.Compare(snap[a].Model.Single(), snap[b].Model.Single())
	})
	return types
}

// Options returns a copy of the resolved options of t.
func (r *Registry) Options(t reflect.Type) (*options.ConnectOptions, error) {
	co, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	return co.Clone(), nil
}

// Model returns a copy of the resolved root model configuration of t.
func (r *Registry) Model(t reflect.Type) (*options.Model, error) {
	co, err := r.Options(t)
	if err != nil {
		return nil, err
	}
	return co.Model, nil
}

// ModelConfig returns a copy of the model configuration of t owned by the
// named integration.
func (r *Registry) ModelConfig(t reflect.Type, integration string) (options.ModelConfig, error) {
	co, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	mc, ok := co.Model.Integration(integration)
	if !ok {
		return nil, &LookupError{Type: co.Model.Single(), Integration: integration, Cause: options.ErrUnknownIntegration}
	}
	return mc.Clone(), nil
}

// Field returns a copy of the resolved configuration of the named field.
func (r *Registry) Field(t reflect.Type, name string) (*options.ModelField, error) {
	co, err := r.Options(t)
	if err != nil {
		return nil, err
	}
	mf, ok := co.Field(name)
	if !ok {
		return nil, &LookupError{Type: co.Model.Single(), Field: name, Cause: options.ErrUnknownField}
	}
	return mf, nil
}

// FieldConfig returns a copy of the field configuration owned by the named
// integration.
func (r *Registry) FieldConfig(t reflect.Type, name, integration string) (options.FieldConfig, error) {
	co, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	mf, ok := co.Field(name)
	if !ok {
		return nil, &LookupError{Type: co.Model.Single(), Field: name, Cause: options.ErrUnknownField}
	}
	fc, ok := mf.Integration(integration)
	if !ok {
		return nil, &LookupError{Type: co.Model.Single(), Field: name, Integration: integration, Cause: options.ErrUnknownIntegration}
	}
	return fc.Clone(), nil
}

// Select compiles a SELECT statement for t.
func (r *Registry) Select(t reflect.Type, opts sql.SelectOptions) (*sql.Statement, error) {
	co, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	stmt, err := sql.SelectAs(co, opts, r.style)
	if err != nil {
		return nil, &StatementError{Type: co.Model.Single(), Op: "select", Err: err}
	}
	built(stmt)
	return stmt, nil
}

// Count compiles a SELECT COUNT(*) statement for t honoring the filter of
// opts.
func (r *Registry) Count(t reflect.Type, opts sql.SelectOptions) (*sql.Statement, error) {
	co, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	stmt, err := sql.CountAs(co, opts, r.style)
	if err != nil {
		return nil, &StatementError{Type: co.Model.Single(), Op: "count", Err: err}
	}
	built(stmt)
	return stmt, nil
}

// Insert compiles an INSERT statement of rows for t.
func (r *Registry) Insert(t reflect.Type, rows any, opts sql.InsertOptions) (*sql.Statement, error) {
	co, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	stmt, err := sql.InsertAs(co, rows, opts, r.style)
	if err != nil {
		return nil, &StatementError{Type: co.Model.Single(), Op: "insert", Err: err}
	}
	built(stmt)
	return stmt, nil
}

// Query compiles a SELECT for t, runs it through ex and yields one record
// value per row.
func (r *Registry) Query(ctx context.Context, ex dialect.ExecQuerier, t reflect.Type, opts sql.SelectOptions, so ...sql.StreamOption) iter.Seq2[reflect.Value, error] {
	return func(yield func(reflect.Value, error) bool) {
		co, err := r.lookup(t)
		if err != nil {
			yield(reflect.Value{}, err)
			return
		}
		stmt, err := r.Select(t, opts)
		if err != nil {
			yield(reflect.Value{}, err)
			return
		}
		for rv, err := range sql.StreamValues(ctx, ex, r.dialect, co, stmt, so...) {
			if !yield(rv, err) || err != nil {
				return
			}
		}
	}
}

func (r *Registry) load() snapshot { return *r.snap.Load() }

func (r *Registry) lookup(t reflect.Type) (*options.ConnectOptions, error) {
	st, err := field.Indirect(t)
	if err != nil {
		return nil, &LookupError{Type: typeString(t), Cause: err}
	}
	co, ok := r.load()[st]
	if !ok {
		return nil, notConnected(st.Name())
	}
	return co, nil
}

func built(stmt *sql.Statement) {
	metrics.StatementsBuilt.WithLabelValues(stmt.Kind, stmt.Table).Inc()
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
