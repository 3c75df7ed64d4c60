package opt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelconnect/opt"
)

func TestZeroValueIsUnset(t *testing.T) {
	var v opt.Value[string]
	assert.False(t, v.IsSet())
	_, ok := v.Get()
	assert.False(t, ok)
	assert.Equal(t, "<unset>", v.String())
	assert.Equal(t, "fallback", v.Or("fallback"))
	assert.Panics(t, func() { v.Must() })
}

func TestSome(t *testing.T) {
	v := opt.Some(false)
	require.True(t, v.IsSet())
	got, ok := v.Get()
	assert.True(t, ok)
	assert.False(t, got)
	assert.False(t, v.Or(true))
	assert.Equal(t, "false", v.String())
}

func TestCoalesce(t *testing.T) {
	t.Run("fills unset", func(t *testing.T) {
		v := opt.Unset[int]()
		assert.Equal(t, 7, opt.Coalesce(&v, 7))
		assert.Equal(t, 7, v.Must())
	})

	t.Run("never overwrites", func(t *testing.T) {
		v := opt.Some(0)
		assert.Equal(t, 0, opt.Coalesce(&v, 7))
		assert.Equal(t, 0, opt.Coalesce(&v, 9))
	})

	t.Run("idempotent", func(t *testing.T) {
		v := opt.Unset[string]()
		opt.Coalesce(&v, "a")
		opt.Coalesce(&v, "b")
		assert.Equal(t, "a", v.Must())
	})
}

func TestCoalesceFunc(t *testing.T) {
	calls := 0
	def := func() string {
		calls++
		return "computed"
	}
	v := opt.Some("explicit")
	assert.Equal(t, "explicit", opt.CoalesceFunc(&v, def))
	assert.Zero(t, calls)

	var u opt.Value[string]
	assert.Equal(t, "computed", opt.CoalesceFunc(&u, def))
	assert.Equal(t, 1, calls)
}
