package field

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"
)

// TagName is the struct tag read by Extract.
const TagName = "model"

// ErrNotRecord is returned when a type is not a struct (or pointer to struct).
var ErrNotRecord = errors.New("field: not a record type")

// Descriptor describes one field of a record type. Descriptors are derived
// once per type and must not be modified.
type Descriptor struct {
	Name       string       // configuration and default column name (snake_case).
	GoName     string       // Go struct field name.
	Type       reflect.Type // declared Go type.
	Identifier bool         // marked with the "id" tag option.
	Index      []int        // index sequence for reflect.Value.FieldByIndex.
}

// IsRecord reports whether the field holds a nested record, as opposed to a
// scalar column value.
func (d *Descriptor) IsRecord() bool {
	t := d.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return false
	}
	return !reflect.PointerTo(t).Implements(scannerType)
}

// Value returns the field value of the given record value.
// v must be a struct value of the type the descriptor was extracted from.
func (d *Descriptor) Value(v reflect.Value) any {
	return v.FieldByIndex(d.Index).Interface()
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %s", d.Name, d.Type)
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	cache       sync.Map // reflect.Type => []*Descriptor
)

// Indirect returns the struct type behind t, or ErrNotRecord.
func Indirect(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrNotRecord)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotRecord, t)
	}
	return t, nil
}

// Extract returns the ordered field descriptors of the record type t.
//
// Exported fields are visited in declaration order and embedded structs are
// flattened. The "model" tag controls the mapping:
//
//	type Person struct {
//		ID       int    `model:"id,id"`    // identifier
//		Name     string                     // name
//		Password string `model:"-"`        // skipped
//	}
func Extract(t reflect.Type) ([]*Descriptor, error) {
	t, err := Indirect(t)
	if err != nil {
		return nil, err
	}
	if fds, ok := cache.Load(t); ok {
		return fds.([]*Descriptor), nil
	}
	var (
		fds  []*Descriptor
		seen = make(map[string]struct{})
	)
	if err := extract(t, nil, &fds, seen); err != nil {
		return nil, fmt.Errorf("field: type %s: %w", t, err)
	}
	actual, _ := cache.LoadOrStore(t, fds)
	return actual.([]*Descriptor), nil
}

func extract(t reflect.Type, index []int, fds *[]*Descriptor, seen map[string]struct{}) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, hasTag := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		idx := append(append([]int(nil), index...), i)
		if sf.Anonymous && !hasTag {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && sf.Type.Kind() != reflect.Pointer {
				if err := extract(ft, idx, fds, seen); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = Snake(sf.Name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate field name %q", name)
		}
		seen[name] = struct{}{}
		fd := &Descriptor{
			Name:   name,
			GoName: sf.Name,
			Type:   sf.Type,
			Index:  idx,
		}
		for _, o := range strings.Split(opts, ",") {
			switch strings.TrimSpace(o) {
			case "":
			case "id":
				fd.Identifier = true
			default:
				return fmt.Errorf("field %q: unknown tag option %q", name, o)
			}
		}
		*fds = append(*fds, fd)
	}
	return nil
}

// Snake converts a Go identifier to snake_case, keeping acronyms together.
//
//	Snake("FullName")        // full_name
//	Snake("HTTPCode")        // http_code
//	Snake("ComputersOwned")  // computers_owned
func Snake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
