package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelconnect/dialect"
)

func TestPlaceholderRender(t *testing.T) {
	tests := []struct {
		style dialect.Placeholder
		n     int
		want  string
	}{
		{dialect.Dollar, 1, "$1"},
		{dialect.Dollar, 12, "$12"},
		{dialect.Question, 3, "?"},
		{dialect.Format, 3, "%s"},
	}
	for _, tt := range tests {
		t.Run(tt.style.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.Render(tt.n))
		})
	}
}

func TestPlaceholderOf(t *testing.T) {
	p, err := dialect.PlaceholderOf(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, dialect.Dollar, p)
	p, err = dialect.PlaceholderOf(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, dialect.Question, p)
	_, err = dialect.PlaceholderOf("oracle")
	assert.Error(t, err)
}

func TestParsePlaceholder(t *testing.T) {
	for in, want := range map[string]dialect.Placeholder{
		"dollar": dialect.Dollar, "?": dialect.Question, "format": dialect.Format,
	} {
		got, err := dialect.ParsePlaceholder(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := dialect.ParsePlaceholder("colon")
	assert.Error(t, err)
}
