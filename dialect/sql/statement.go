package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/modelconnect/dialect"
)

// mark stands in for a placeholder while a statement is assembled.
const mark = "\x00"

// Statement kinds.
const (
	KindSelect = "select"
	KindInsert = "insert"
	KindCount  = "count"
)

// Statement is a compiled SQL statement. Args are bound positionally and
// the statement remembers its placeholder positions, so it can be rendered
// in any placeholder style.
type Statement struct {
	SQL  string
	Args []any
	// Kind and Table label the statement in metrics and logs. They are
	// empty for statements not compiled by this package.
	Kind  string
	Table string

	frags []string
	style dialect.Placeholder
}

// Placeholder returns the style SQL was rendered with.
func (s *Statement) Placeholder() dialect.Placeholder { return s.style }

// As returns a copy of the statement rendered in the given style.
func (s *Statement) As(style dialect.Placeholder) *Statement {
	c := &Statement{Args: append([]any(nil), s.Args...), Kind: s.Kind, Table: s.Table, frags: s.frags, style: style}
	c.SQL = render(c.frags, style)
	return c
}

// String implements fmt.Stringer.
func (s *Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.Args)
}

func render(frags []string, style dialect.Placeholder) string {
	var b strings.Builder
	for i, f := range frags {
		if i > 0 {
			b.WriteString(style.Render(i))
		}
		b.WriteString(f)
	}
	return b.String()
}

func (s *Statement) label(kind, table string) *Statement {
	s.Kind, s.Table = kind, table
	return s
}

// Builder assembles SQL text with positional placeholders.
type Builder struct {
	sb    strings.Builder
	args  []any
	marks int
}

// WriteString appends raw SQL text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Pad appends a single space.
func (b *Builder) Pad() *Builder {
	b.sb.WriteByte(' ')
	return b
}

// Placeholder appends a placeholder without binding a value. The value is
// expected to be bound by a processor in the same position.
func (b *Builder) Placeholder() *Builder {
	b.sb.WriteString(mark)
	b.marks++
	return b
}

// Arg appends a placeholder bound to v.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	return b.Placeholder()
}

// Join appends items separated by sep.
func (b *Builder) Join(sep string, items []string) *Builder {
	b.sb.WriteString(strings.Join(items, sep))
	return b
}

var errArgCount = errors.New("sql: placeholder and parameter count mismatch")

// Statement collapses whitespace and returns the statement bound to args.
// If args is nil, the values bound with Arg are used.
func (b *Builder) Statement(args []any, style dialect.Placeholder) (*Statement, error) {
	if args == nil {
		args = b.args
	}
	if args == nil {
		args = []any{}
	}
	if len(args) != b.marks {
		return nil, fmt.Errorf("%w: %d placeholders, %d parameters", errArgCount, b.marks, len(args))
	}
	text := strings.Join(strings.Fields(b.sb.String()), " ")
	s := &Statement{Args: args, frags: strings.Split(text, mark), style: style}
	s.SQL = render(s.frags, style)
	return s, nil
}

// Expand flattens Tuple and Batch parameters into one placeholder per value,
// for drivers that do not bind sequences. An empty tuple expands to (NULL).
func Expand(s *Statement) *Statement {
	var (
		b    Builder
		args []any
	)
	for i, f := range s.frags {
		b.WriteString(f)
		if i == len(s.frags)-1 {
			break
		}
		switch v := s.Args[i].(type) {
		case Tuple:
			if v.Len() == 0 {
				b.WriteString("(NULL)")
				continue
			}
			group(&b, v.vs)
		case Batch:
			for j, row := range v.rows {
				if j > 0 {
					b.WriteString(", ")
				}
				group(&b, row)
			}
		default:
			b.Arg(v)
		}
	}
	args = b.args
	if args == nil {
		args = []any{}
	}
	c := &Statement{Args: args, Kind: s.Kind, Table: s.Table, frags: strings.Split(b.sb.String(), mark), style: s.style}
	c.SQL = render(c.frags, c.style)
	return c
}

func group(b *Builder, vs []any) {
	b.WriteString("(")
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(v)
	}
	b.WriteString(")")
}
