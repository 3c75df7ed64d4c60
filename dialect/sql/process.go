package sql

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/syssam/modelconnect/options"
)

// Clause is one normalized filter condition. Its value is bound at the
// parameter position matching the clause position.
type Clause struct {
	Column   string
	Operator string
}

// OrderTerm is one normalized ORDER BY term.
type OrderTerm struct {
	Column    string
	Direction string
}

// Pager records which pagination values were bound.
type Pager struct {
	HasLimit bool
	HasSkip  bool
}

// Conflict is the normalized ON CONFLICT clause.
type Conflict struct {
	Do      string
	Targets []string
	Updates []string
}

// operatorSet lists the comparison operators a filter may use.
var operatorSet = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"LIKE": {}, "NOT LIKE": {}, "ILIKE": {}, "NOT ILIKE": {},
	"IN": {}, "NOT IN": {}, "IS": {}, "IS NOT": {},
}

// ProcessFilter normalizes a filter into clauses, appending one parameter
// per clause to args. Unknown fields, fields that cannot be filtered on and
// unknown operators are skipped.
func ProcessFilter(co *options.ConnectOptions, filter Filter, args *[]any) []Clause {
	var clauses []Clause
	for _, w := range filter {
		_, f, ok := lookupField(co, w.Field)
		if !ok || !f.CanFilter.Or(true) {
			continue
		}
		column := f.Column.Or(w.Field)
		for _, op := range operators(w.Value) {
			operator := strings.ToUpper(strings.Join(strings.Fields(op.Operator), " "))
			if _, ok := operatorSet[operator]; !ok {
				continue
			}
			if operator == "IN" || operator == "NOT IN" {
				vs, ok := sequence(op.Value)
				if !ok {
					vs = []any{op.Value}
				}
				*args = append(*args, NewTuple(vs...))
				clauses = append(clauses, Clause{Column: column, Operator: operator})
				continue
			}
			vs, ok := sequence(op.Value)
			if !ok {
				vs = []any{op.Value}
			}
			for _, v := range vs {
				*args = append(*args, v)
				clauses = append(clauses, Clause{Column: column, Operator: nullOperator(operator, v)})
			}
		}
	}
	return clauses
}

// operators expands a filter value into its operator list.
func operators(v any) Ops {
	switch v := v.(type) {
	case Ops:
		return v
	case []Op:
		return v
	case Op:
		return Ops{v}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ops := make(Ops, len(keys))
		for i, k := range keys {
			ops[i] = Op{Operator: k, Value: v[k]}
		}
		return ops
	}
	if vs, ok := sequence(v); ok {
		return Ops{{Operator: "IN", Value: NewTuple(vs...)}}
	}
	return Ops{{Operator: "=", Value: v}}
}

func nullOperator(operator string, v any) string {
	if v != nil {
		return operator
	}
	switch operator {
	case "=":
		return "IS"
	case "!=", "<>":
		return "IS NOT"
	}
	return operator
}

// ProcessSort normalizes sort terms. Unknown fields, fields that cannot be
// sorted on and directions other than ASC or DESC are skipped.
func ProcessSort(co *options.ConnectOptions, s Sort) []OrderTerm {
	var terms []OrderTerm
	for _, o := range s {
		_, f, ok := lookupField(co, o.Field)
		if !ok || !f.CanSort.Or(true) {
			continue
		}
		dir := strings.ToUpper(strings.TrimSpace(o.Direction))
		if dir != "ASC" && dir != "DESC" {
			continue
		}
		terms = append(terms, OrderTerm{Column: f.Column.Or(o.Field), Direction: dir})
	}
	return terms
}

// ProcessPagination appends the limit and then the skip value to args, for
// whichever of them is set.
func ProcessPagination(p *Pagination, args *[]any) Pager {
	var pg Pager
	if p == nil {
		return pg
	}
	if v, ok := p.Limit.Get(); ok {
		*args = append(*args, v)
		pg.HasLimit = true
	}
	if v, ok := p.Skip.Get(); ok {
		*args = append(*args, v)
		pg.HasSkip = true
	}
	return pg
}

// ProcessGroupBy returns the columns of the named fields that can be
// grouped by, in input order.
func ProcessGroupBy(co *options.ConnectOptions, names GroupBy) []string {
	var columns []string
	for _, name := range names {
		_, f, ok := lookupField(co, name)
		if !ok || !f.CanGroup.Or(true) {
			continue
		}
		columns = append(columns, f.Column.Or(name))
	}
	return columns
}

// ProcessOnConflict normalizes the ON CONFLICT options. Targets and update
// columns follow the declaration order of the fields. An action other than
// "update" or "nothing" is a configuration error.
func ProcessOnConflict(co *options.ConnectOptions, oc *OnConflict) (*Conflict, error) {
	if oc == nil {
		return nil, nil
	}
	do := strings.ToLower(strings.TrimSpace(oc.Do))
	if do != DoNothing && do != DoUpdate {
		return nil, options.NewOptionError(co.Model.Single(), "do", oc.Do, fmt.Sprintf("on conflict action must be %q or %q", DoUpdate, DoNothing))
	}
	c := &Conflict{Do: do, Targets: []string{}, Updates: []string{}}
	targets, restrictTargets := oc.ConflictTargets.Get()
	updates, restrictUpdates := oc.UpdateColumns.Get()
	for _, name := range co.Fields.Names() {
		_, f, ok := lookupField(co, name)
		if !ok {
			continue
		}
		column := f.Column.Or(name)
		if f.CanBeConflictTarget.Or(false) && (!restrictTargets || named(targets, name, column)) {
			c.Targets = append(c.Targets, column)
		}
		if do == DoUpdate && f.IncludeInOnConflictUpdate.Or(false) && (!restrictUpdates || named(updates, name, column)) {
			c.Updates = append(c.Updates, column)
		}
	}
	return c, nil
}

func named(list []string, name, column string) bool {
	return slices.Contains(list, name) || slices.Contains(list, column)
}
