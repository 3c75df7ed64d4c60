// Package options implements the configuration resolution graph.
//
// A ConnectOptions value starts out sparse: callers set only the attributes
// they want to override and leave the rest unset. Resolve walks the graph top
// down (model, query params, integration model configs, fields, DTOs,
// integration field configs) and fills every unset attribute with a default
// derived from the record type and from already resolved ancestors.
// Explicitly set attributes are never overwritten.
//
//	co := &options.ConnectOptions{
//		Model: &options.Model{NamePlural: opt.Some("people")},
//		Fields: options.NewModelFields(map[string]*options.ModelField{
//			"password": {CanFilter: opt.Some(false)},
//		}),
//	}
//	if err := co.Resolve(reflect.TypeOf(Person{})); err != nil {
//		return err
//	}
package options

import (
	"reflect"

	"github.com/syssam/modelconnect/schema/field"
)

// ConnectOptions is the root of the resolution graph of one record type.
type ConnectOptions struct {
	Model  *Model
	Fields *ModelFields

	typ      reflect.Type
	resolved bool
}

// Type returns the record type bound during resolution.
func (o *ConnectOptions) Type() reflect.Type { return o.typ }

// Resolved reports whether Resolve completed successfully.
func (o *ConnectOptions) Resolved() bool { return o.resolved }

// Field returns the resolved configuration of the named field.
func (o *ConnectOptions) Field(name string) (*ModelField, bool) {
	if o.Fields == nil {
		return nil, false
	}
	return o.Fields.Get(name)
}

// Resolve binds the options to the record type t and fills every unset
// attribute. Resolving the same options twice is a configuration error.
func (o *ConnectOptions) Resolve(t reflect.Type) error {
	if o.resolved {
		return &ConfigError{Type: typeName(t), Cause: ErrResolved}
	}
	st, err := field.Indirect(t)
	if err != nil {
		return &ConfigError{Type: typeName(t), Cause: err}
	}
	fds, err := field.Extract(st)
	if err != nil {
		return &ConfigError{Type: typeName(st), Cause: err}
	}
	o.typ = st
	if o.Model == nil {
		o.Model = &Model{}
	}
	if o.Fields == nil {
		o.Fields = NewModelFields(nil)
	}
	if err := o.Model.resolve(&ModelContext{Type: st, Model: o.Model}); err != nil {
		return withType(err, st)
	}
	if err := o.Fields.resolve(st, o.Model, fds); err != nil {
		return withType(err, st)
	}
	o.resolved = true
	return nil
}

// Clone returns a deep copy of the options. Integration configurations are
// copied through their Clone methods.
func (o *ConnectOptions) Clone() *ConnectOptions {
	c := &ConnectOptions{typ: o.typ, resolved: o.resolved}
	if o.Model != nil {
		c.Model = o.Model.clone()
	}
	if o.Fields != nil {
		c.Fields = o.Fields.clone()
	}
	return c
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func withType(err error, t reflect.Type) error {
	if ce, ok := err.(*ConfigError); ok && ce.Type == "" {
		ce.Type = t.String()
	}
	return err
}
