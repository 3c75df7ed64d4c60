package modelconnect

import (
	"go.uber.org/zap"

	"github.com/syssam/modelconnect/dialect"
)

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets the logger used for connect diagnostics.
// The default logger discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) error {
		if l == nil {
			return &ConfigError{Option: "logger", Message: "logger cannot be nil"}
		}
		r.logger = l
		return nil
	}
}

// WithDialect sets the database dialect statements are compiled for.
// The dialect determines the placeholder style: "postgres" renders $n,
// "mysql" and "sqlite" render ?. A style given with WithPlaceholder wins
// regardless of option order.
func WithDialect(name string) Option {
	return func(r *Registry) error {
		style, err := dialect.PlaceholderOf(name)
		if err != nil {
			return &ConfigError{Option: "dialect", Message: "unsupported dialect", Cause: err}
		}
		r.dialect = name
		if !r.styleSet {
			r.style = style
		}
		return nil
	}
}

// WithPlaceholder overrides the placeholder style of compiled statements,
// for example dialect.Format for drivers using %s.
func WithPlaceholder(p dialect.Placeholder) Option {
	return func(r *Registry) error {
		if p < dialect.Dollar || p > dialect.Format {
			return &ConfigError{Option: "placeholder", Message: "unknown placeholder style"}
		}
		r.style = p
		r.styleSet = true
		return nil
	}
}
