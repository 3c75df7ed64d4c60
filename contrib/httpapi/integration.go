// Package httpapi is the "http-api" integration. It derives resource paths,
// route tags and query-string handling for connected record types and
// mounts fiber handlers serving them.
//
//	httpapi.SetGlobalOptions(httpapi.GlobalOptions{BasePrefix: "/api"})
//	modelconnect.MustConnect[Person](&options.ConnectOptions{
//		Model: &options.Model{
//			NamePlural:   opt.Some("persons"),
//			Integrations: []options.ModelConfig{&httpapi.Model{ResourceVersion: opt.Some(1)}},
//		},
//	})
//	prefix, _ := httpapi.Prefix(modelconnect.Default, reflect.TypeFor[Person]())
//	// /api/v1/persons
package httpapi

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/go-openapi/inflect"

	"github.com/syssam/modelconnect/opt"
	"github.com/syssam/modelconnect/options"
)

// IntegrationName is the name of the HTTP API integration.
const IntegrationName = "http-api"

func init() {
	options.Register(options.Integration{
		Name:     IntegrationName,
		NewModel: func() options.ModelConfig { return &Model{} },
		NewField: func() options.FieldConfig { return &Field{} },
	})
}

// Errors returned for invalid requests.
var (
	// ErrInvalidParam is returned for query parameters that cannot be parsed.
	ErrInvalidParam = errors.New("httpapi: invalid query parameter")
	// ErrMissingField is returned when a required request field is absent.
	ErrMissingField = errors.New("httpapi: missing required field")
	// ErrUnknownMethod is returned for methods without DTO options.
	ErrUnknownMethod = errors.New("httpapi: unknown method")
)

// GlobalOptions holds settings shared by every resource.
type GlobalOptions struct {
	// BasePrefix is prepended to every resource path, e.g. "/api".
	BasePrefix string
}

var global atomic.Pointer[GlobalOptions]

func init() {
	global.Store(&GlobalOptions{})
}

// SetGlobalOptions replaces the global options.
func SetGlobalOptions(o GlobalOptions) {
	global.Store(&o)
}

// Global returns the current global options.
func Global() GlobalOptions {
	return *global.Load()
}

// Model is the HTTP API configuration of a record type.
type Model struct {
	// ResourcePath defaults to the dasherized plural name, e.g. "/computer-parts".
	// The plural is derived with English inflection rules when the model has
	// no explicit plural name.
	ResourcePath opt.Value[string]
	// TagName defaults to the plural name.
	TagName opt.Value[string]
	// ResourceVersion adds a "/v{n}" segment when positive.
	ResourceVersion opt.Value[int]
}

// Integration implements options.ModelConfig.
func (*Model) Integration() string { return IntegrationName }

// Resolve implements options.ModelConfig.
func (m *Model) Resolve(ctx *options.ModelContext) error {
	plural, ok := ctx.Model.NamePlural.Get()
	if !ok || plural == "" {
		plural = inflect.Pluralize(ctx.Model.Single())
	}
	opt.Coalesce(&m.ResourcePath, "/"+inflect.Dasherize(plural))
	opt.Coalesce(&m.TagName, plural)
	opt.Coalesce(&m.ResourceVersion, 0)
	if path := m.ResourcePath.Or(""); !strings.HasPrefix(path, "/") {
		m.ResourcePath = opt.Some("/" + path)
	}
	if m.ResourceVersion.Or(0) < 0 {
		return options.NewOptionError(ctx.Model.Single(), "resource_version", m.ResourceVersion.Or(0), "version must not be negative")
	}
	return nil
}

// Clone implements options.ModelConfig.
func (m *Model) Clone() options.ModelConfig {
	c := *m
	return &c
}

// Field is the HTTP API configuration of a record field.
type Field struct {
	// Param is the name of the field in query strings and bodies.
	// It defaults to the field name.
	Param opt.Value[string]
	// Expose controls whether the field appears in the API at all.
	Expose opt.Value[bool]
}

// Param returns a field configuration with the given parameter name.
func Param(name string) *Field {
	return &Field{Param: opt.Some(name)}
}

// Hidden returns a field configuration keeping the field out of the API.
func Hidden() *Field {
	return &Field{Expose: opt.Some(false)}
}

// Integration implements options.FieldConfig.
func (*Field) Integration() string { return IntegrationName }

// Resolve implements options.FieldConfig.
func (f *Field) Resolve(ctx *options.FieldContext) error {
	opt.Coalesce(&f.Param, ctx.Field.Name())
	opt.Coalesce(&f.Expose, true)
	if f.Param.Or("") == "" {
		return options.NewConfigError(ctx.Model.Single(), ctx.Field.Name(), "empty parameter name", nil)
	}
	return nil
}

// Clone implements options.FieldConfig.
func (f *Field) Clone() options.FieldConfig {
	c := *f
	return &c
}

// ModelOf returns the HTTP API model configuration of resolved options.
func ModelOf(co *options.ConnectOptions) (*Model, error) {
	mc, ok := co.Model.Integration(IntegrationName)
	if !ok {
		return nil, &options.LookupError{Type: co.Model.Single(), Integration: IntegrationName, Cause: options.ErrUnknownIntegration}
	}
	return mc.(*Model), nil
}

// FieldOf returns the HTTP API configuration of a resolved field.
func FieldOf(mf *options.ModelField) (*Field, bool) {
	fc, ok := mf.Integration(IntegrationName)
	if !ok {
		return nil, false
	}
	f, ok := fc.(*Field)
	return f, ok
}
