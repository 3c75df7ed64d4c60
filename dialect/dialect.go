// Package dialect defines the database dialects supported by modelconnect
// and how each of them spells a bound parameter.
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// Compiled statements keep their placeholder positions, so the same statement
// can be rendered in any Placeholder style:
//
//	dialect.Dollar.Render(1)   // $1
//	dialect.Question.Render(1) // ?
//	dialect.Format.Render(1)   // %s
package dialect

import (
	"context"
	"fmt"
	"strconv"
)

// Dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ExecQuerier wraps the two query execution methods.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for dialect drivers.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Placeholder is the spelling of a bound parameter in SQL text.
type Placeholder int

// Placeholder styles.
const (
	// Dollar renders numbered placeholders ($1, $2, ...).
	Dollar Placeholder = iota
	// Question renders positional question marks.
	Question
	// Format renders printf style markers (%s).
	Format
)

// Render returns the placeholder of the n-th (1-based) parameter.
func (p Placeholder) Render(n int) string {
	switch p {
	case Question:
		return "?"
	case Format:
		return "%s"
	default:
		return "$" + strconv.Itoa(n)
	}
}

// String implements fmt.Stringer.
func (p Placeholder) String() string {
	switch p {
	case Dollar:
		return "dollar"
	case Question:
		return "question"
	case Format:
		return "format"
	default:
		return fmt.Sprintf("Placeholder(%d)", int(p))
	}
}

// PlaceholderOf returns the native placeholder style of a dialect.
func PlaceholderOf(name string) (Placeholder, error) {
	switch name {
	case Postgres:
		return Dollar, nil
	case MySQL, SQLite:
		return Question, nil
	default:
		return Dollar, fmt.Errorf("dialect: unsupported dialect %q", name)
	}
}

// ParsePlaceholder parses a placeholder style by name.
func ParsePlaceholder(s string) (Placeholder, error) {
	switch s {
	case "dollar", "$":
		return Dollar, nil
	case "question", "?":
		return Question, nil
	case "format", "%s":
		return Format, nil
	default:
		return Dollar, fmt.Errorf("dialect: unknown placeholder style %q", s)
	}
}
