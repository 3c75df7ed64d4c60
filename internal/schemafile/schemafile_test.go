package schemafile_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/contrib/httpapi"
	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/internal/schemafile"
	"github.com/syssam/modelconnect/options"
)

const shop = `
dialect: sqlite
models:
  - name: Customer
    plural: customers
    version: 2
    fields:
      - {name: id, type: uuid, id: true, generate: true}
      - {name: full_name, type: string, param: name, required: true}
      - {name: age, type: int, nullable: true, sortable: false}
      - {name: password, type: string, hidden: true, column: pass}
  - name: Tag
    table: labels
    schema: shop
    fields:
      - {name: id, type: int, id: true}
      - {name: label, type: string}
  - name: Badge
    fields:
      - {name: id, type: int, id: true}
      - {name: label, type: string}
`

func decode(t *testing.T, s string) *schemafile.File {
	t.Helper()
	f, err := schemafile.Decode(strings.NewReader(s))
	require.NoError(t, err)
	return f
}

func TestDecode(t *testing.T) {
	f := decode(t, shop)
	assert.Equal(t, "sqlite", f.Dialect)
	require.Len(t, f.Models, 3)

	m, ok := f.Model("Customer")
	require.True(t, ok)
	typ := m.Type()
	assert.Equal(t, reflect.Struct, typ.Kind())
	assert.Same(t, typ, m.Type())
	sf, ok := typ.FieldByName("FullName")
	require.True(t, ok)
	assert.Equal(t, `full_name`, sf.Tag.Get("model"))
	sf, ok = typ.FieldByName("Id")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[uuid.UUID](), sf.Type)
	sf, _ = typ.FieldByName("Age")
	assert.Equal(t, reflect.PointerTo(reflect.TypeFor[int]()), sf.Type)

	_, ok = f.Model("Missing")
	assert.False(t, ok)
}

func TestDistinctTypes(t *testing.T) {
	f := decode(t, shop)
	tag, _ := f.Model("Tag")
	badge, _ := f.Model("Badge")
	assert.NotEqual(t, tag.Type(), badge.Type())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "empty file"},
		{"no models", "dialect: postgres\n", "no models"},
		{"unnamed", "models:\n  - fields: [{name: id, type: int}]\n", "has no name"},
		{"duplicate model", "models:\n  - {name: A, fields: [{name: id, type: int}]}\n  - {name: A, fields: [{name: id, type: int}]}\n", `duplicate model "A"`},
		{"no fields", "models:\n  - name: A\n", "has no fields"},
		{"bad name", "models:\n  - {name: A, fields: [{name: FullName, type: int}]}\n", "lower snake case"},
		{"duplicate field", "models:\n  - {name: A, fields: [{name: id, type: int}, {name: id, type: int}]}\n", `duplicate field "id"`},
		{"same go name", "models:\n  - {name: A, fields: [{name: x1, type: int}, {name: x_1, type: int}]}\n", `fields "x1" and "x_1" have the same Go name X1`},
		{"unknown type", "models:\n  - {name: A, fields: [{name: id, type: decimal}]}\n", `unknown type "decimal"`},
		{"generate", "models:\n  - {name: A, fields: [{name: id, type: int, generate: true}]}\n", "generate requires type uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schemafile.Decode(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, schemafile.ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := schemafile.Decode(strings.NewReader("models: []\ncolour: red\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shop), 0o600))
	f, err := schemafile.Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Models, 3)

	_, err = schemafile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	f := decode(t, shop)
	reg, err := modelconnect.NewRegistry(modelconnect.WithDialect(dialect.SQLite))
	require.NoError(t, err)
	require.NoError(t, f.Connect(context.Background(), reg))

	customer, _ := f.Model("Customer")
	co, err := reg.Options(customer.Type())
	require.NoError(t, err)
	assert.Equal(t, "Customer", co.Model.Single())

	dbm, err := sql.ModelOf(co)
	require.NoError(t, err)
	assert.Equal(t, "customer", dbm.QualifiedTable())

	pass, err := reg.FieldConfig(customer.Type(), "password", sql.IntegrationName)
	require.NoError(t, err)
	assert.Equal(t, "pass", pass.(*sql.Field).Column.Or(""))

	id, err := reg.FieldConfig(customer.Type(), "id", sql.IntegrationName)
	require.NoError(t, err)
	assert.True(t, id.(*sql.Field).IncludeInInsert.Or(false))

	age, err := reg.Field(customer.Type(), "age")
	require.NoError(t, err)
	assert.False(t, age.CanSort.Or(true))

	name, err := reg.Field(customer.Type(), "full_name")
	require.NoError(t, err)
	assert.True(t, name.Request[options.MethodPost].Require.Or(false))
	assert.False(t, name.Request[options.MethodGet].Require.Or(true))

	api, err := reg.FieldConfig(customer.Type(), "full_name", httpapi.IntegrationName)
	require.NoError(t, err)
	assert.Equal(t, "name", api.(*httpapi.Field).Param.Or(""))

	prefix, err := httpapi.Prefix(reg, customer.Type())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(prefix, "/v2/customers"))

	tag, _ := f.Model("Tag")
	stmt, err := reg.Select(tag.Type(), sql.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, label FROM shop.labels", stmt.String())

	// Connecting the same file twice fails on the first model.
	err = f.Connect(context.Background(), reg)
	assert.Error(t, err)
}

func TestFill(t *testing.T) {
	f := decode(t, shop)
	customer, _ := f.Model("Customer")
	fixed := uuid.New()

	row := map[string]any{"full_name": "joe"}
	customer.Fill(row)
	id, ok := row["id"].(uuid.UUID)
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, id)

	row = map[string]any{"id": fixed}
	customer.Fill(row)
	assert.Equal(t, fixed, row["id"])
}
