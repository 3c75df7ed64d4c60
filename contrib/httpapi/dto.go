package httpapi

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/options"
)

// resource is the resolved HTTP API view of one connected record type.
type resource struct {
	co      *options.ConnectOptions
	model   *Model
	params  []*param // exposed fields in declaration order.
	byParam map[string]*param
}

type param struct {
	field string
	name  string
	mf    *options.ModelField
}

func load(reg *modelconnect.Registry, t reflect.Type) (*resource, error) {
	co, err := reg.Options(t)
	if err != nil {
		return nil, err
	}
	m, err := ModelOf(co)
	if err != nil {
		return nil, err
	}
	r := &resource{co: co, model: m, byParam: make(map[string]*param)}
	for _, name := range co.Fields.Names() {
		mf, _ := co.Field(name)
		f, ok := FieldOf(mf)
		if !ok || !f.Expose.Or(true) {
			continue
		}
		p := &param{field: name, name: f.Param.Or(name), mf: mf}
		r.params = append(r.params, p)
		r.byParam[p.name] = p
	}
	return r, nil
}

// Response shapes a record into the response body of method. Fields that
// are hidden or excluded from the method's response DTO are left out; keys
// are parameter names.
func Response(reg *modelconnect.Registry, t reflect.Type, method options.Method, record any) (map[string]any, error) {
	r, err := load(reg, t)
	if err != nil {
		return nil, err
	}
	return r.response(method, record)
}

func (r *resource) response(method options.Method, record any) (map[string]any, error) {
	rv, ok := record.(reflect.Value)
	if !ok {
		rv = reflect.ValueOf(record)
	}
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != r.co.Type() {
		return nil, fmt.Errorf("httpapi: response of %T for %s", record, r.co.Type())
	}
	out := make(map[string]any, len(r.params))
	for _, p := range r.params {
		dto, ok := p.mf.Response[method]
		if !ok {
			return nil, r.unknownMethod(method)
		}
		if !dto.Include.Or(true) {
			continue
		}
		v := p.mf.Descriptor().Value(rv)
		if dto.Preprocessor != nil {
			var err error
			if v, err = dto.Preprocessor(v); err != nil {
				return nil, fmt.Errorf("httpapi: field %s: %w", p.name, err)
			}
		}
		out[p.name] = v
	}
	return out, nil
}

// Request shapes a decoded request body of method into a row keyed by field
// name, ready for modelconnect.Registry.Insert. Unknown keys and fields
// excluded from the method's request DTO are dropped; a missing required
// field is an error wrapping ErrMissingField.
func Request(reg *modelconnect.Registry, t reflect.Type, method options.Method, body map[string]any) (map[string]any, error) {
	r, err := load(reg, t)
	if err != nil {
		return nil, err
	}
	return r.request(method, body)
}

func (r *resource) request(method options.Method, body map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(body))
	for _, p := range r.params {
		dto, ok := p.mf.Request[method]
		if !ok {
			return nil, r.unknownMethod(method)
		}
		if !dto.Include.Or(true) {
			continue
		}
		v, ok := body[p.name]
		if !ok {
			if dto.Require.Or(false) {
				return nil, fmt.Errorf("%w: %s", ErrMissingField, p.name)
			}
			continue
		}
		v, err := coerce(p.mf.Type(), v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, p.name, err)
		}
		if dto.Preprocessor != nil {
			if v, err = dto.Preprocessor(v); err != nil {
				return nil, fmt.Errorf("httpapi: field %s: %w", p.name, err)
			}
		}
		out[p.field] = v
	}
	return out, nil
}

func (r *resource) unknownMethod(method options.Method) error {
	return &options.LookupError{Type: r.co.Model.Single(), Integration: IntegrationName, Field: string(method), Cause: ErrUnknownMethod}
}

// coerce converts a decoded JSON value to the declared field type where
// the conversion is lossless, e.g. float64 numbers to integer fields.
func coerce(t reflect.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return v, nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := v.(float64)
		if !ok || f != float64(int64(f)) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		return reflect.ValueOf(int64(f)).Convert(t).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok := v.(float64)
		if !ok || f < 0 || f != float64(uint64(f)) {
			return nil, fmt.Errorf("%v is not an unsigned integer", v)
		}
		return reflect.ValueOf(uint64(f)).Convert(t).Interface(), nil
	case reflect.Float32, reflect.Float64, reflect.String, reflect.Bool:
		if rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind() {
			return rv.Convert(t).Interface(), nil
		}
		if f, ok := v.(float64); ok && (t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64) {
			return reflect.ValueOf(f).Convert(t).Interface(), nil
		}
		return nil, fmt.Errorf("%v is not a %s", v, t)
	}
	return v, nil
}

// parse converts a query-string value to the declared field type.
func parse(t reflect.Type, s string) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(f).Convert(t).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(b).Convert(t).Interface(), nil
	}
	return s, nil
}
