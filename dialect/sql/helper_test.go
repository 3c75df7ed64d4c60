package sql

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/modelconnect/options"
)

type Person struct {
	ID   int `model:",id"`
	Name string
	Age  int
}

type Address struct {
	Street string
	City   string
}

type Account struct {
	ID       int `model:",id"`
	Email    string
	Password string
	Home     Address
}

// connect resolves options for the type of v.
func connect(t *testing.T, v any, co *options.ConnectOptions) *options.ConnectOptions {
	t.Helper()
	if co == nil {
		co = &options.ConnectOptions{}
	}
	require.NoError(t, co.Resolve(reflect.TypeOf(v)))
	return co
}

func connectPerson(t *testing.T) *options.ConnectOptions {
	return connect(t, Person{}, nil)
}
