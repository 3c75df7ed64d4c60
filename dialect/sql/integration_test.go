package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelconnect/opt"
	"github.com/syssam/modelconnect/options"
)

func TestModelDefaults(t *testing.T) {
	tests := []struct {
		name  string
		model *options.Model
		want  string
	}{
		{"type name", nil, "person"},
		{"plural ignored", &options.Model{NamePlural: opt.Some("People")}, "person"},
		{"single only", &options.Model{NameSingle: opt.Some("Human")}, "human"},
		{"explicit", &options.Model{NamePlural: opt.Some("people"), Integrations: []options.ModelConfig{Table("persons")}}, "persons"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co := connect(t, Person{}, &options.ConnectOptions{Model: tt.model})
			m, err := ModelOf(co)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Table.Must())
			assert.Equal(t, tt.want, m.QualifiedTable())
		})
	}
}

func TestModelSchema(t *testing.T) {
	co := connect(t, Person{}, &options.ConnectOptions{
		Model: &options.Model{Integrations: []options.ModelConfig{&Model{Schema: opt.Some("crm")}}},
	})
	m, err := ModelOf(co)
	require.NoError(t, err)
	assert.Equal(t, "crm.person", m.QualifiedTable())
}

func TestFieldDefaults(t *testing.T) {
	co := connect(t, Account{}, &options.ConnectOptions{
		Fields: options.NewModelFields(map[string]*options.ModelField{
			"password": {CanFilter: opt.Some(false), CanSort: opt.Some(false)},
			"email":    {Integrations: []options.FieldConfig{Column("email_address")}},
		}),
	})

	tests := []struct {
		field                                    string
		column                                   string
		filter, sort, group                      bool
		target, insert, selected, conflictUpdate bool
	}{
		{"id", "id", true, true, true, true, false, true, false},
		{"email", "email_address", true, true, true, false, true, true, true},
		{"password", "password", false, false, true, false, true, true, true},
		{"home", "home", true, true, true, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			mf, ok := co.Field(tt.field)
			require.True(t, ok)
			f, ok := FieldOf(mf)
			require.True(t, ok)
			assert.Equal(t, tt.column, f.Column.Must())
			assert.Equal(t, tt.filter, f.CanFilter.Must())
			assert.Equal(t, tt.sort, f.CanSort.Must())
			assert.Equal(t, tt.group, f.CanGroup.Must())
			assert.Equal(t, tt.target, f.CanBeConflictTarget.Must())
			assert.Equal(t, tt.insert, f.IncludeInInsert.Must())
			assert.Equal(t, tt.selected, f.IncludeInSelect.Must())
			assert.Equal(t, tt.conflictUpdate, f.IncludeInOnConflictUpdate.Must())
		})
	}
}

func TestModelOfUnresolved(t *testing.T) {
	_, err := ModelOf(&options.ConnectOptions{})
	assert.ErrorIs(t, err, options.ErrLookup)
	_, ok := FieldOf(nil)
	assert.False(t, ok)
}
