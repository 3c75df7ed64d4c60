package options

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/syssam/modelconnect/opt"
	"github.com/syssam/modelconnect/schema/field"
)

// ModelField holds the configuration of one record field.
type ModelField struct {
	// CanSort defaults to true.
	CanSort opt.Value[bool]
	// CanFilter defaults to true.
	CanFilter opt.Value[bool]
	// IsIdentifier defaults to the "id" option of the struct tag.
	IsIdentifier opt.Value[bool]
	// Request and Response hold per-method DTO options.
	Request  RequestDtos
	Response ResponseDtos
	// Integrations holds explicit per-integration overrides.
	Integrations []FieldConfig

	desc     *field.Descriptor
	resolved map[string]FieldConfig
	order    []string
}

// Name returns the field name. Empty before resolution.
func (f *ModelField) Name() string {
	if f.desc == nil {
		return ""
	}
	return f.desc.Name
}

// Type returns the Go type of the field. Nil before resolution.
func (f *ModelField) Type() reflect.Type {
	if f.desc == nil {
		return nil
	}
	return f.desc.Type
}

// Descriptor returns the field descriptor bound during resolution.
func (f *ModelField) Descriptor() *field.Descriptor { return f.desc }

// Integration returns the resolved configuration of the named integration.
func (f *ModelField) Integration(name string) (FieldConfig, bool) {
	c, ok := f.resolved[name]
	return c, ok
}

// IntegrationNames returns the integrations resolved for this field in
// registration order.
func (f *ModelField) IntegrationNames() []string {
	return slices.Clone(f.order)
}

func (f *ModelField) resolve(t reflect.Type, m *Model, fd *field.Descriptor) error {
	f.desc = fd
	opt.Coalesce(&f.CanSort, true)
	opt.Coalesce(&f.CanFilter, true)
	opt.Coalesce(&f.IsIdentifier, fd.Identifier)
	if f.Request == nil {
		f.Request = RequestDtos{}
	}
	f.Request.resolve()
	if f.Response == nil {
		f.Response = ResponseDtos{}
	}
	f.Response.resolve()

	overrides := make(map[string]FieldConfig, len(f.Integrations))
	for _, c := range f.Integrations {
		if c == nil {
			continue
		}
		name := c.Integration()
		if _, ok := Lookup(name); !ok {
			return &ConfigError{Type: m.Single(), Field: fd.Name, Message: fmt.Sprintf("field override for %q", name), Cause: ErrUnknownIntegration}
		}
		if _, dup := overrides[name]; dup {
			return &ConfigError{Type: m.Single(), Field: fd.Name, Message: fmt.Sprintf("duplicate field override for integration %q", name)}
		}
		overrides[name] = c
	}

	ctx := &FieldContext{Type: t, Model: m, Field: f}
	f.resolved = make(map[string]FieldConfig)
	f.order = f.order[:0]
	for _, in := range Integrations() {
		c, ok := overrides[in.Name]
		if !ok {
			c = in.NewField()
		}
		if err := c.Resolve(ctx); err != nil {
			return &ConfigError{Type: m.Single(), Field: fd.Name, Message: fmt.Sprintf("resolve integration %q", in.Name), Cause: err}
		}
		f.resolved[in.Name] = c
		f.order = append(f.order, in.Name)
	}
	return nil
}

func (f *ModelField) clone() *ModelField {
	c := *f
	c.Request = f.Request.clone()
	c.Response = f.Response.clone()
	c.order = slices.Clone(f.order)
	c.Integrations = nil
	if f.resolved != nil {
		c.resolved = make(map[string]FieldConfig, len(f.resolved))
		for _, name := range f.order {
			cc := f.resolved[name].Clone()
			c.resolved[name] = cc
			c.Integrations = append(c.Integrations, cc)
		}
	} else {
		for _, fc := range f.Integrations {
			if fc != nil {
				c.Integrations = append(c.Integrations, fc.Clone())
			}
		}
	}
	return &c
}

// ModelFields maps field names to their configuration. Once resolved it
// contains exactly one entry per record field, in declaration order.
type ModelFields struct {
	byName map[string]*ModelField
	names  []string
}

// NewModelFields returns ModelFields holding the given overrides.
func NewModelFields(overrides map[string]*ModelField) *ModelFields {
	fs := &ModelFields{byName: make(map[string]*ModelField, len(overrides))}
	for name, f := range overrides {
		fs.Set(name, f)
	}
	return fs
}

// Set adds or replaces the configuration of a field.
func (fs *ModelFields) Set(name string, f *ModelField) {
	if fs.byName == nil {
		fs.byName = make(map[string]*ModelField)
	}
	if _, ok := fs.byName[name]; !ok {
		fs.names = append(fs.names, name)
	}
	fs.byName[name] = f
}

// Get returns the configuration of a field.
func (fs *ModelFields) Get(name string) (*ModelField, bool) {
	f, ok := fs.byName[name]
	return f, ok
}

// Names returns the field names. After resolution they follow declaration
// order.
func (fs *ModelFields) Names() []string { return slices.Clone(fs.names) }

// Len returns the number of fields.
func (fs *ModelFields) Len() int { return len(fs.names) }

// Each calls fn for every field in order, stopping at the first error.
func (fs *ModelFields) Each(fn func(string, *ModelField) error) error {
	for _, name := range fs.names {
		if err := fn(name, fs.byName[name]); err != nil {
			return err
		}
	}
	return nil
}

func (fs *ModelFields) resolve(t reflect.Type, m *Model, fds []*field.Descriptor) error {
	known := make(map[string]struct{}, len(fds))
	for _, fd := range fds {
		known[fd.Name] = struct{}{}
	}
	var unknown []string
	for name := range fs.byName {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ConfigError{Type: m.Single(), Field: strings.Join(unknown, ", "), Message: "override names no record field", Cause: ErrUnknownField}
	}

	byName := make(map[string]*ModelField, len(fds))
	names := make([]string, 0, len(fds))
	for _, fd := range fds {
		f := fs.byName[fd.Name]
		if f == nil {
			f = &ModelField{}
		}
		if err := f.resolve(t, m, fd); err != nil {
			return err
		}
		byName[fd.Name] = f
		names = append(names, fd.Name)
	}
	fs.byName, fs.names = byName, names
	return nil
}

func (fs *ModelFields) clone() *ModelFields {
	c := &ModelFields{byName: make(map[string]*ModelField, len(fs.byName)), names: slices.Clone(fs.names)}
	for name, f := range fs.byName {
		if f != nil {
			c.byName[name] = f.clone()
		}
	}
	return c
}
