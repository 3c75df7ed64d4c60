package httpapi_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/contrib/httpapi"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/opt"
	"github.com/syssam/modelconnect/options"
)

type Person struct {
	ID       int `model:",id"`
	Name     string
	Age      int
	Password string
}

type ComputerPart struct {
	ID    int `model:",id"`
	Label string
	Price float64
	Spare bool
}

var (
	personType = reflect.TypeFor[Person]()
	partType   = reflect.TypeFor[ComputerPart]()
)

func setBasePrefix(t *testing.T, prefix string) {
	t.Helper()
	prev := httpapi.Global()
	httpapi.SetGlobalOptions(httpapi.GlobalOptions{BasePrefix: prefix})
	t.Cleanup(func() { httpapi.SetGlobalOptions(prev) })
}

// connectPerson connects Person as "persons", with the password hidden and
// the name exposed as "full_name".
func connectPerson(t *testing.T) *modelconnect.Registry {
	t.Helper()
	reg, err := modelconnect.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Connect(personType, &options.ConnectOptions{
		Model: &options.Model{
			NamePlural:   opt.Some("persons"),
			Integrations: []options.ModelConfig{&httpapi.Model{ResourceVersion: opt.Some(1)}},
		},
		Fields: options.NewModelFields(map[string]*options.ModelField{
			"name":     {Integrations: []options.FieldConfig{httpapi.Param("full_name")}},
			"password": {Integrations: []options.FieldConfig{httpapi.Hidden()}},
		}),
	}))
	return reg
}

func TestPrefix(t *testing.T) {
	setBasePrefix(t, "/api")
	reg := connectPerson(t)

	prefix, err := httpapi.Prefix(reg, personType)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/persons", prefix)

	tags, err := httpapi.Tags(reg, personType)
	require.NoError(t, err)
	assert.Equal(t, []string{"persons"}, tags)

	_, err = httpapi.Prefix(reg, partType)
	assert.ErrorIs(t, err, modelconnect.ErrNotConnected)
}

func TestModelDefaults(t *testing.T) {
	setBasePrefix(t, "/api/")
	reg, err := modelconnect.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Connect(partType, nil))

	mc, err := reg.ModelConfig(partType, httpapi.IntegrationName)
	require.NoError(t, err)
	m := mc.(*httpapi.Model)
	assert.Equal(t, "/computer-parts", m.ResourcePath.Or(""))
	assert.Equal(t, "ComputerParts", m.TagName.Or(""))
	assert.Equal(t, 0, m.ResourceVersion.Or(-1))

	prefix, err := httpapi.Prefix(reg, partType)
	require.NoError(t, err)
	assert.Equal(t, "/api/computer-parts", prefix)

	fc, err := reg.FieldConfig(partType, "label", httpapi.IntegrationName)
	require.NoError(t, err)
	f := fc.(*httpapi.Field)
	assert.Equal(t, "label", f.Param.Or(""))
	assert.True(t, f.Expose.Or(false))

	m2, err := reg.Model(partType)
	require.NoError(t, err)
	assert.False(t, m2.NamePlural.IsSet(), "the root plural stays unset")
}

func TestModelExplicitValues(t *testing.T) {
	reg, err := modelconnect.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Connect(partType, &options.ConnectOptions{
		Model: &options.Model{Integrations: []options.ModelConfig{&httpapi.Model{
			ResourcePath: opt.Some("parts"),
			TagName:      opt.Some("Inventory"),
		}}},
	}))
	setBasePrefix(t, "")
	prefix, err := httpapi.Prefix(reg, partType)
	require.NoError(t, err)
	assert.Equal(t, "/parts", prefix)
	tags, err := httpapi.Tags(reg, partType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Inventory"}, tags)

	err = reg.Connect(personType, &options.ConnectOptions{
		Model: &options.Model{Integrations: []options.ModelConfig{&httpapi.Model{ResourceVersion: opt.Some(-1)}}},
	})
	assert.ErrorIs(t, err, modelconnect.ErrConfiguration)
}

func TestParseQuery(t *testing.T) {
	reg := connectPerson(t)
	tests := []struct {
		name  string
		query string
		want  *httpapi.Query
	}{
		{
			name:  "empty",
			query: "",
			want:  &httpapi.Query{},
		},
		{
			name:  "pagination",
			query: "$limit=10&$offset=20",
			want:  &httpapi.Query{SelectOptions: sql.SelectOptions{Pagination: sql.Page(10, 20)}},
		},
		{
			name:  "limit only",
			query: "$limit=5",
			want:  &httpapi.Query{SelectOptions: sql.SelectOptions{Pagination: &sql.Pagination{Limit: opt.Some[any](5)}}},
		},
		{
			name:  "sort",
			query: "$sort=-age,full_name&$sort=id:desc,password,nope",
			want: &httpapi.Query{SelectOptions: sql.SelectOptions{Sort: sql.Sort{
				{Field: "age", Direction: "DESC"},
				{Field: "name", Direction: "ASC"},
				{Field: "id", Direction: "desc"},
			}}},
		},
		{
			name:  "count",
			query: "$count",
			want:  &httpapi.Query{Count: true},
		},
		{
			name:  "filter",
			query: "full_name=bob&age[gte]=18&id[in]=1,2&id[bogus]=3&password=x&unknown=y",
			want: &httpapi.Query{SelectOptions: sql.SelectOptions{Filter: sql.Filter{
				{Field: "name", Value: sql.Ops{{Operator: "=", Value: "bob"}}},
				{Field: "age", Value: sql.Ops{{Operator: ">=", Value: 18}}},
				{Field: "id", Value: sql.Ops{{Operator: "IN", Value: []any{1, 2}}}},
			}}},
		},
		{
			name:  "request order",
			query: "id=1&age=3",
			want: &httpapi.Query{SelectOptions: sql.SelectOptions{Filter: sql.Filter{
				{Field: "id", Value: sql.Ops{{Operator: "=", Value: 1}}},
				{Field: "age", Value: sql.Ops{{Operator: "=", Value: 3}}},
			}}},
		},
		{
			name:  "escaped",
			query: "full_name=bob+joe&full_name[like]=%25o%25",
			want: &httpapi.Query{SelectOptions: sql.SelectOptions{Filter: sql.Filter{
				{Field: "name", Value: sql.Ops{{Operator: "=", Value: "bob joe"}}},
				{Field: "name", Value: sql.Ops{{Operator: "LIKE", Value: "%o%"}}},
			}}},
		},
		{
			name:  "repeated equality",
			query: "age=1&age=2",
			want: &httpapi.Query{SelectOptions: sql.SelectOptions{Filter: sql.Filter{
				{Field: "age", Value: sql.Ops{{Operator: "IN", Value: []any{1, 2}}}},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := httpapi.ParseQuery(reg, personType, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestParseQueryErrors(t *testing.T) {
	reg := connectPerson(t)
	for _, query := range []string{"$limit=x", "$offset=-1", "$count=maybe", "age=old", "id[in]=1,a"} {
		_, err := httpapi.ParseQuery(reg, personType, query)
		assert.ErrorIs(t, err, httpapi.ErrInvalidParam, query)
	}
}

func TestParseQueryDisabled(t *testing.T) {
	reg, err := modelconnect.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Connect(partType, &options.ConnectOptions{
		Model: &options.Model{QueryParams: &options.QueryParams{
			EnableFiltering:  opt.Some(false),
			EnablePagination: opt.Some(false),
			EnableCount:      opt.Some(false),
			SortLabel:        opt.Some("order_by"),
		}},
	}))
	q, err := httpapi.ParseQuery(reg, partType, "label=x&$limit=1&$count&order_by=-price&spare=maybe")
	require.NoError(t, err)
	assert.Equal(t, &httpapi.Query{SelectOptions: sql.SelectOptions{Sort: sql.Sort{{Field: "price", Direction: "DESC"}}}}, q)
}

func TestResponse(t *testing.T) {
	reg := connectPerson(t)
	p := Person{ID: 1, Name: "bob", Age: 30, Password: "secret"}

	out, err := httpapi.Response(reg, personType, options.MethodGet, p)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 1, "full_name": "bob", "age": 30}, out)

	out, err = httpapi.Response(reg, personType, options.MethodGet, &p)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	_, err = httpapi.Response(reg, personType, options.MethodGet, ComputerPart{})
	assert.Error(t, err)
	_, err = httpapi.Response(reg, personType, "TRACE", p)
	assert.ErrorIs(t, err, httpapi.ErrUnknownMethod)
}

func TestResponseDto(t *testing.T) {
	reg, err := modelconnect.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Connect(personType, &options.ConnectOptions{
		Fields: options.NewModelFields(map[string]*options.ModelField{
			"age": {Response: options.ResponseDtos{options.MethodGet: {Include: opt.Some(false)}}},
			"name": {Response: options.ResponseDtos{options.MethodGet: {Preprocessor: func(v any) (any, error) {
				return strings.ToUpper(v.(string)), nil
			}}}},
			"password": {Response: options.ResponseDtos{options.MethodGet: {Preprocessor: func(any) (any, error) {
				return nil, errors.New("never")
			}}}},
		}),
	}))
	_, err = httpapi.Response(reg, personType, options.MethodGet, Person{Name: "bob"})
	assert.ErrorContains(t, err, "never")

	out, err := httpapi.Response(reg, personType, options.MethodPost, Person{Name: "bob", Age: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, out["age"])
	assert.Equal(t, "bob", out["name"])
}

func TestRequest(t *testing.T) {
	reg, err := modelconnect.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Connect(personType, &options.ConnectOptions{
		Fields: options.NewModelFields(map[string]*options.ModelField{
			"id":   {Request: options.RequestDtos{options.MethodPost: {Include: opt.Some(false)}}},
			"name": {Request: options.RequestDtos{options.MethodPost: {Require: opt.Some(true)}}},
			"password": {Request: options.RequestDtos{options.MethodPost: {Preprocessor: func(v any) (any, error) {
				return "hashed:" + v.(string), nil
			}}}},
		}),
	}))

	row, err := httpapi.Request(reg, personType, options.MethodPost, map[string]any{
		"id": float64(9), "name": "bob", "age": float64(30), "password": "pw", "extra": true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "bob", "age": 30, "password": "hashed:pw"}, row)

	_, err = httpapi.Request(reg, personType, options.MethodPost, map[string]any{"age": float64(1)})
	assert.ErrorIs(t, err, httpapi.ErrMissingField)
	_, err = httpapi.Request(reg, personType, options.MethodPost, map[string]any{"name": "bob", "age": 1.5})
	assert.ErrorIs(t, err, httpapi.ErrInvalidParam)

	row, err = httpapi.Request(reg, personType, options.MethodPut, map[string]any{"id": float64(9)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 9}, row)
}
