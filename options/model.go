package options

import (
	"fmt"

	"github.com/syssam/modelconnect/opt"
)

// Model holds the model-level configuration of a record type.
type Model struct {
	// NameSingle defaults to the Go type name.
	NameSingle opt.Value[string]
	// NamePlural has no default; Plural falls back to the single name.
	NamePlural opt.Value[string]
	// QueryParams configures the query-string surface of the model.
	QueryParams *QueryParams
	// Integrations holds explicit per-integration overrides. At most one
	// override per integration name.
	Integrations []ModelConfig

	resolved map[string]ModelConfig
	order    []string
}

// Single returns the resolved singular name.
func (m *Model) Single() string { return m.NameSingle.Or("") }

// Plural returns the plural name, or the singular name if no plural is set.
func (m *Model) Plural() string { return m.NamePlural.Or(m.Single()) }

// Integration returns the resolved configuration of the named integration.
func (m *Model) Integration(name string) (ModelConfig, bool) {
	c, ok := m.resolved[name]
	return c, ok
}

// IntegrationNames returns the integrations resolved for this model in
// registration order.
func (m *Model) IntegrationNames() []string {
	return append([]string(nil), m.order...)
}

func (m *Model) resolve(ctx *ModelContext) error {
	typeName := ctx.Type.Name()
	if opt.Coalesce(&m.NameSingle, typeName) == "" {
		return &ConfigError{Option: "NameSingle", Message: "record type is unnamed, set the singular name explicitly"}
	}
	if m.QueryParams == nil {
		m.QueryParams = &QueryParams{}
	}
	m.QueryParams.resolve()

	overrides := make(map[string]ModelConfig, len(m.Integrations))
	for _, c := range m.Integrations {
		if c == nil {
			continue
		}
		name := c.Integration()
		if _, ok := Lookup(name); !ok {
			return &ConfigError{Type: m.Single(), Message: fmt.Sprintf("model override for %q", name), Cause: ErrUnknownIntegration}
		}
		if _, dup := overrides[name]; dup {
			return &ConfigError{Type: m.Single(), Message: fmt.Sprintf("duplicate model override for integration %q", name)}
		}
		overrides[name] = c
	}

	m.resolved = make(map[string]ModelConfig)
	m.order = m.order[:0]
	for _, in := range Integrations() {
		c, ok := overrides[in.Name]
		if !ok {
			c = in.NewModel()
		}
		if err := c.Resolve(ctx); err != nil {
			return &ConfigError{Type: m.Single(), Message: fmt.Sprintf("resolve integration %q", in.Name), Cause: err}
		}
		m.resolved[in.Name] = c
		m.order = append(m.order, in.Name)
	}
	return nil
}

func (m *Model) clone() *Model {
	c := *m
	if m.QueryParams != nil {
		qp := *m.QueryParams
		c.QueryParams = &qp
	}
	c.Integrations = nil
	c.order = append([]string(nil), m.order...)
	if m.resolved != nil {
		c.resolved = make(map[string]ModelConfig, len(m.resolved))
		for _, name := range m.order {
			cc := m.resolved[name].Clone()
			c.resolved[name] = cc
			c.Integrations = append(c.Integrations, cc)
		}
	} else {
		for _, mc := range m.Integrations {
			if mc != nil {
				c.Integrations = append(c.Integrations, mc.Clone())
			}
		}
	}
	return &c
}

// QueryParams configures which query-string capabilities a model exposes
// and the labels of the reserved parameters.
type QueryParams struct {
	EnableCount      opt.Value[bool]
	EnablePagination opt.Value[bool]
	EnableFiltering  opt.Value[bool]
	EnableSorting    opt.Value[bool]

	LimitLabel  opt.Value[string]
	OffsetLabel opt.Value[string]
	CountLabel  opt.Value[string]
	SortLabel   opt.Value[string]
}

// Default query parameter labels.
const (
	DefaultLimitLabel  = "$limit"
	DefaultOffsetLabel = "$offset"
	DefaultCountLabel  = "$count"
	DefaultSortLabel   = "$sort"
)

func (q *QueryParams) resolve() {
	opt.Coalesce(&q.EnableCount, true)
	opt.Coalesce(&q.EnablePagination, true)
	opt.Coalesce(&q.EnableFiltering, true)
	opt.Coalesce(&q.EnableSorting, true)
	opt.Coalesce(&q.LimitLabel, DefaultLimitLabel)
	opt.Coalesce(&q.OffsetLabel, DefaultOffsetLabel)
	opt.Coalesce(&q.CountLabel, DefaultCountLabel)
	opt.Coalesce(&q.SortLabel, DefaultSortLabel)
}

// Reserved reports whether key is one of the reserved parameter labels.
func (q *QueryParams) Reserved(key string) bool {
	switch key {
	case q.LimitLabel.Or(DefaultLimitLabel), q.OffsetLabel.Or(DefaultOffsetLabel),
		q.CountLabel.Or(DefaultCountLabel), q.SortLabel.Or(DefaultSortLabel):
		return true
	}
	return false
}
