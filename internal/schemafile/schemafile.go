// Package schemafile loads record types described in YAML files and
// connects them to a registry.
//
//	dialect: postgres
//	base_prefix: /api
//	models:
//	  - name: Person
//	    plural: persons
//	    table: people
//	    version: 1
//	    fields:
//	      - {name: id, type: uuid, id: true, generate: true}
//	      - {name: name, type: string, param: full_name, required: true}
//	      - {name: age, type: int, nullable: true}
//	      - {name: password, type: string, hidden: true}
//
// Each model is materialized as a struct type with reflect.StructOf; the
// "model" tag of every generated field carries the declared name.
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/syssam/modelconnect/contrib/httpapi"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/opt"
	"github.com/syssam/modelconnect/options"
)

// ErrInvalid is returned for schema files that fail validation.
var ErrInvalid = errors.New("schemafile: invalid schema")

// File is the root of a schema file.
type File struct {
	Dialect    string   `yaml:"dialect"`
	BasePrefix string   `yaml:"base_prefix"`
	Models     []*Model `yaml:"models"`
}

// Model describes one record type.
type Model struct {
	Name    string   `yaml:"name"`
	Plural  string   `yaml:"plural"`
	Table   string   `yaml:"table"`
	Schema  string   `yaml:"schema"`
	Path    string   `yaml:"path"`
	Tag     string   `yaml:"tag"`
	Version int      `yaml:"version"`
	Fields  []*Field `yaml:"fields"`

	typ reflect.Type
}

// Field describes one record field.
type Field struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	ID       bool   `yaml:"id"`
	Nullable bool   `yaml:"nullable"`
	Column   string `yaml:"column"`
	Param    string `yaml:"param"`
	Hidden   bool   `yaml:"hidden"`
	Required bool   `yaml:"required"`
	// Generate fills missing uuid values with random ones on insert.
	Generate   bool  `yaml:"generate"`
	Sortable   *bool `yaml:"sortable"`
	Filterable *bool `yaml:"filterable"`
}

var (
	types = map[string]reflect.Type{
		"string":  reflect.TypeFor[string](),
		"int":     reflect.TypeFor[int](),
		"int32":   reflect.TypeFor[int32](),
		"int64":   reflect.TypeFor[int64](),
		"float":   reflect.TypeFor[float64](),
		"float64": reflect.TypeFor[float64](),
		"bool":    reflect.TypeFor[bool](),
		"time":    reflect.TypeFor[time.Time](),
		"uuid":    reflect.TypeFor[uuid.UUID](),
		"bytes":   reflect.TypeFor[[]byte](),
	}
	identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Load reads and validates the schema file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads and validates a schema file. Unknown keys are errors.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalid)
		}
		return nil, fmt.Errorf("schemafile: decoding YAML: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if len(f.Models) == 0 {
		return fmt.Errorf("%w: no models", ErrInvalid)
	}
	seen := make(map[string]bool, len(f.Models))
	var errs []error
	for i, m := range f.Models {
		if m == nil || m.Name == "" {
			errs = append(errs, fmt.Errorf("%w: model %d has no name", ErrInvalid, i))
			continue
		}
		if seen[m.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate model %q", ErrInvalid, m.Name))
		}
		seen[m.Name] = true
		if err := m.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Model) validate() error {
	if len(m.Fields) == 0 {
		return fmt.Errorf("%w: model %s has no fields", ErrInvalid, m.Name)
	}
	seen := make(map[string]bool, len(m.Fields))
	seenGo := make(map[string]string, len(m.Fields))
	for _, fd := range m.Fields {
		switch {
		case fd == nil:
			return fmt.Errorf("%w: model %s: empty field", ErrInvalid, m.Name)
		case !identRe.MatchString(fd.Name):
			return fmt.Errorf("%w: model %s: field name %q must be lower snake case", ErrInvalid, m.Name, fd.Name)
		case seen[fd.Name]:
			return fmt.Errorf("%w: model %s: duplicate field %q", ErrInvalid, m.Name, fd.Name)
		case seenGo[goName(fd.Name)] != "":
			return fmt.Errorf("%w: model %s: fields %q and %q have the same Go name %s", ErrInvalid, m.Name, seenGo[goName(fd.Name)], fd.Name, goName(fd.Name))
		case types[fd.Type] == nil:
			return fmt.Errorf("%w: model %s: field %s has unknown type %q", ErrInvalid, m.Name, fd.Name, fd.Type)
		case fd.Generate && fd.Type != "uuid":
			return fmt.Errorf("%w: model %s: field %s: generate requires type uuid", ErrInvalid, m.Name, fd.Name)
		}
		seen[fd.Name] = true
		seenGo[goName(fd.Name)] = fd.Name
	}
	return nil
}

// Model returns the model with the given name.
func (f *File) Model(name string) (*Model, bool) {
	for _, m := range f.Models {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Type returns the struct type of the model. Models with identical fields
// still get distinct types.
func (m *Model) Type() reflect.Type {
	if m.typ != nil {
		return m.typ
	}
	sfs := make([]reflect.StructField, 0, len(m.Fields)+1)
	sfs = append(sfs, reflect.StructField{
		Name: "Record_",
		Type: reflect.TypeFor[struct{}](),
		Tag:  reflect.StructTag(fmt.Sprintf(`model:"-" record:%q`, m.Name)),
	})
	for _, fd := range m.Fields {
		t := types[fd.Type]
		if fd.Nullable {
			t = reflect.PointerTo(t)
		}
		tag := fd.Name
		if fd.ID {
			tag += ",id"
		}
		sfs = append(sfs, reflect.StructField{
			Name: goName(fd.Name),
			Type: t,
			Tag:  reflect.StructTag(fmt.Sprintf(`model:%q`, tag)),
		})
	}
	m.typ = reflect.StructOf(sfs)
	return m.typ
}

// goName converts a snake_case name to an exported Go identifier.
func goName(name string) string {
	var (
		b     strings.Builder
		title = cases.Title(language.Und)
	)
	for _, part := range strings.Split(name, "_") {
		b.WriteString(title.String(part))
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

// Options returns fresh connect options for the model.
func (m *Model) Options() *options.ConnectOptions {
	model := &options.Model{NameSingle: opt.Some(m.Name)}
	if m.Plural != "" {
		model.NamePlural = opt.Some(m.Plural)
	}
	db := &sql.Model{}
	if m.Table != "" {
		db.Table = opt.Some(m.Table)
	}
	if m.Schema != "" {
		db.Schema = opt.Some(m.Schema)
	}
	api := &httpapi.Model{}
	if m.Path != "" {
		api.ResourcePath = opt.Some(m.Path)
	}
	if m.Tag != "" {
		api.TagName = opt.Some(m.Tag)
	}
	if m.Version != 0 {
		api.ResourceVersion = opt.Some(m.Version)
	}
	model.Integrations = []options.ModelConfig{db, api}

	fields := options.NewModelFields(nil)
	for _, fd := range m.Fields {
		fields.Set(fd.Name, fd.options())
	}
	return &options.ConnectOptions{Model: model, Fields: fields}
}

func (fd *Field) options() *options.ModelField {
	mf := &options.ModelField{}
	if fd.Sortable != nil {
		mf.CanSort = opt.Some(*fd.Sortable)
	}
	if fd.Filterable != nil {
		mf.CanFilter = opt.Some(*fd.Filterable)
	}
	if fd.Required {
		mf.Request = options.RequestDtos{
			options.MethodPost: {Require: opt.Some(true)},
			options.MethodPut:  {Require: opt.Some(true)},
		}
	}
	db := &sql.Field{}
	if fd.Column != "" {
		db.Column = opt.Some(fd.Column)
	}
	if fd.Generate {
		db.IncludeInInsert = opt.Some(true)
	}
	api := &httpapi.Field{}
	if fd.Param != "" {
		api.Param = opt.Some(fd.Param)
	}
	if fd.Hidden {
		api.Expose = opt.Some(false)
	}
	mf.Integrations = []options.FieldConfig{db, api}
	return mf
}

// Fill sets every missing generated field of row to a new random UUID.
func (m *Model) Fill(row map[string]any) {
	for _, fd := range m.Fields {
		if !fd.Generate {
			continue
		}
		if v, ok := row[fd.Name]; !ok || v == nil {
			row[fd.Name] = uuid.New()
		}
	}
}
