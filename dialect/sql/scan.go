package sql

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/options"
	"github.com/syssam/modelconnect/schema/field"
)

// DefaultChunkSize is the number of rows buffered per chunk.
const DefaultChunkSize = 1000

var tracer = otel.Tracer("github.com/syssam/modelconnect/dialect/sql")

// StreamOption configures a stream.
type StreamOption func(*streamConfig)

type streamConfig struct {
	chunk int
}

// WithChunkSize sets the number of rows read before they are yielded.
func WithChunkSize(n int) StreamOption {
	return func(c *streamConfig) {
		if n > 0 {
			c.chunk = n
		}
	}
}

// Stream executes the statement and yields one record per result row.
// Rows are read in chunks and mapped onto fields by column name, applying
// field decoders. The iteration stops at the first error.
//
//	for p, err := range sql.Stream[Person](ctx, drv, dialect.Postgres, co, stmt) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(p.Name)
//	}
func Stream[T any](ctx context.Context, ex dialect.ExecQuerier, dialectName string, co *options.ConnectOptions, s *Statement, opts ...StreamOption) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if reflect.TypeOf(zero) != co.Type() {
			yield(zero, fmt.Errorf("%w: stream of %T for %s", ErrInvalidRow, zero, co.Type()))
			return
		}
		for rv, err := range StreamValues(ctx, ex, dialectName, co, s, opts...) {
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

// StreamValues is like Stream for record types only known at run time.
func StreamValues(ctx context.Context, ex dialect.ExecQuerier, dialectName string, co *options.ConnectOptions, s *Statement, opts ...StreamOption) iter.Seq2[reflect.Value, error] {
	cfg := streamConfig{chunk: DefaultChunkSize}
	for _, o := range opts {
		o(&cfg)
	}
	return func(yield func(reflect.Value, error) bool) {
		ctx, span := tracer.Start(ctx, "modelconnect.stream", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			attribute.String("db.system", dialectName),
			attribute.String("db.statement", s.SQL),
			attribute.Int("modelconnect.chunk_size", cfg.chunk),
		)
		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(reflect.Value{}, err)
		}
		rows, err := QueryStatement(ctx, ex, dialectName, s)
		if err != nil {
			fail(err)
			return
		}
		defer rows.Close()
		m, err := newMapper(co, rows)
		if err != nil {
			fail(err)
			return
		}
		var (
			total int
			chunk = make([]reflect.Value, 0, cfg.chunk)
		)
		for {
			chunk = chunk[:0]
			for len(chunk) < cfg.chunk && rows.Next() {
				rv, err := m.scan(rows)
				if err != nil {
					fail(err)
					return
				}
				chunk = append(chunk, rv)
			}
			if err := rows.Err(); err != nil {
				fail(err)
				return
			}
			if len(chunk) == 0 {
				break
			}
			total += len(chunk)
			span.AddEvent("chunk", trace.WithAttributes(attribute.Int("rows", len(chunk))))
			for _, rv := range chunk {
				if !yield(rv, nil) {
					span.SetAttributes(attribute.Int("modelconnect.rows", total))
					return
				}
			}
			if len(chunk) < cfg.chunk {
				break
			}
		}
		span.SetAttributes(attribute.Int("modelconnect.rows", total))
	}
}

// mapper maps result columns onto record fields.
type mapper struct {
	typ     reflect.Type
	targets []*target // by column position; nil for unmapped columns.
}

type target struct {
	desc    *field.Descriptor
	decoder Codec
}

func newMapper(co *options.ConnectOptions, rows *Rows) (*mapper, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	byColumn := make(map[string]*target)
	for _, name := range co.Fields.Names() {
		mf, f, ok := lookupField(co, name)
		if !ok {
			continue
		}
		t := &target{desc: mf.Descriptor(), decoder: f.Decoder}
		byColumn[f.Column.Or(name)] = t
		if _, ok := byColumn[name]; !ok {
			byColumn[name] = t
		}
	}
	m := &mapper{typ: co.Type(), targets: make([]*target, len(columns))}
	for i, c := range columns {
		m.targets[i] = byColumn[c]
	}
	return m, nil
}

func (m *mapper) scan(rows *Rows) (reflect.Value, error) {
	values := make([]any, len(m.targets))
	dest := make([]any, len(m.targets))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.New(m.typ).Elem()
	for i, t := range m.targets {
		if t == nil {
			continue
		}
		v := values[i]
		if t.decoder != nil {
			var err error
			if v, err = t.decoder(v); err != nil {
				return reflect.Value{}, fmt.Errorf("decode %s: %w", t.desc.Name, err)
			}
		}
		if err := assign(rv.FieldByIndex(t.desc.Index), v); err != nil {
			return reflect.Value{}, fmt.Errorf("assign %s: %w", t.desc.Name, err)
		}
	}
	return rv, nil
}

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// assign stores a scanned value into a struct field.
func assign(dst reflect.Value, v any) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(v)
	}
	if v == nil {
		dst.SetZero()
		return nil
	}
	src := reflect.ValueOf(v)
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case src.Type().ConvertibleTo(dst.Type()) && convertible(src.Kind(), dst.Kind()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
	}
	return nil
}

// convertible excludes integer to string conversions.
func convertible(src, dst reflect.Kind) bool {
	if dst == reflect.String {
		return src == reflect.String || src == reflect.Slice
	}
	return true
}
