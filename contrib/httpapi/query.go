package httpapi

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/opt"
)

// Query is a parsed query string.
type Query struct {
	sql.SelectOptions
	// Count reports whether the total number of matching rows was requested.
	Count bool
}

// operators maps query-string operator tokens to SQL operators:
//
//	?age[gte]=18&name[like]=%25o%25&id[in]=1,2,3
var operators = map[string]string{
	"eq":    "=",
	"ne":    "!=",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
	"like":  "LIKE",
	"ilike": "ILIKE",
	"in":    "IN",
	"nin":   "NOT IN",
}

// ParseQuery translates a query string into select options for t, honoring
// the model's query parameter settings:
//
//	?$limit=10&$offset=20      pagination
//	?$sort=-age,name           ORDER BY age DESC, name ASC
//	?$count                    Query.Count
//	?name=bob&age[gte]=18      filter
//
// Parameters are mapped to fields through their parameter names, and
// filters keep the order their keys first appear in. Unknown parameters,
// hidden fields and unknown operators are dropped without error; capability
// flags are enforced later by the query processors. Malformed numbers in
// reserved parameters or typed fields are errors wrapping ErrInvalidParam.
func ParseQuery(reg *modelconnect.Registry, t reflect.Type, query string) (*Query, error) {
	r, err := load(reg, t)
	if err != nil {
		return nil, err
	}
	var args fasthttp.Args
	args.Parse(query)
	return r.parseQuery(collect(args.VisitAll))
}

// params holds decoded query parameters in request order.
type params struct {
	keys   []string
	values map[string][]string
}

// collect gathers the parameters reported by visit, e.g. the VisitAll
// method of the request's query args.
func collect(visit func(func(key, value []byte))) *params {
	p := &params{values: make(map[string][]string)}
	visit(func(key, value []byte) {
		k := string(key)
		if _, ok := p.values[k]; !ok {
			p.keys = append(p.keys, k)
		}
		p.values[k] = append(p.values[k], string(value))
	})
	return p
}

func (p *params) has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *params) get(key string) string {
	if vs := p.values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (r *resource) parseQuery(ps *params) (*Query, error) {
	var (
		q   = &Query{}
		qp  = r.co.Model.QueryParams
		err error
	)
	if qp.EnablePagination.Or(true) {
		limit, ok, err := intParam(ps, qp.LimitLabel.Or(""))
		if err != nil {
			return nil, err
		}
		skip, skipOK, err := intParam(ps, qp.OffsetLabel.Or(""))
		if err != nil {
			return nil, err
		}
		if ok || skipOK {
			q.Pagination = &sql.Pagination{}
			if ok {
				q.Pagination.Limit = opt.Some[any](limit)
			}
			if skipOK {
				q.Pagination.Skip = opt.Some[any](skip)
			}
		}
	}
	if qp.EnableSorting.Or(true) {
		for _, v := range ps.values[qp.SortLabel.Or("")] {
			for _, term := range strings.Split(v, ",") {
				if o, ok := r.order(term); ok {
					q.Sort = append(q.Sort, o)
				}
			}
		}
	}
	if label := qp.CountLabel.Or(""); qp.EnableCount.Or(true) && ps.has(label) {
		v := ps.get(label)
		if v == "" {
			q.Count = true
		} else if q.Count, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, label, err)
		}
	}
	if !qp.EnableFiltering.Or(true) {
		return q, nil
	}
	for _, k := range ps.keys {
		if qp.Reserved(k) {
			continue
		}
		w, ok, err := r.where(k, ps.values[k])
		if err != nil {
			return nil, err
		}
		if ok {
			q.Filter = append(q.Filter, w)
		}
	}
	return q, nil
}

func intParam(ps *params, label string) (int, bool, error) {
	if !ps.has(label) {
		return 0, false, nil
	}
	n, err := strconv.Atoi(ps.get(label))
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("%w: %s=%q", ErrInvalidParam, label, ps.get(label))
	}
	return n, true, nil
}

// order parses "name", "-name", "name:asc" or "name:desc".
func (r *resource) order(term string) (sql.Order, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return sql.Order{}, false
	}
	dir := "ASC"
	if name, d, ok := strings.Cut(term, ":"); ok {
		term, dir = name, d
	} else if strings.HasPrefix(term, "-") {
		term, dir = term[1:], "DESC"
	}
	p, ok := r.byParam[term]
	if !ok {
		return sql.Order{}, false
	}
	return sql.Order{Field: p.field, Direction: dir}, true
}

// where parses one filter parameter, either "name" or "name[op]".
func (r *resource) where(key string, vs []string) (sql.Where, bool, error) {
	name, token := key, "eq"
	if i := strings.IndexByte(key, '['); i > 0 && strings.HasSuffix(key, "]") {
		name, token = key[:i], strings.ToLower(key[i+1:len(key)-1])
	}
	p, ok := r.byParam[name]
	if !ok {
		return sql.Where{}, false, nil
	}
	op, ok := operators[token]
	if !ok || len(vs) == 0 {
		return sql.Where{}, false, nil
	}
	if op == "IN" || op == "NOT IN" {
		var split []string
		for _, v := range vs {
			split = append(split, strings.Split(v, ",")...)
		}
		vs = split
	}
	values := make([]any, len(vs))
	for i, v := range vs {
		pv, err := parse(p.mf.Type(), v)
		if err != nil {
			return sql.Where{}, false, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, v)
		}
		values[i] = pv
	}
	var value any = values
	if len(values) == 1 && op != "IN" && op != "NOT IN" {
		value = values[0]
	}
	if op == "=" && len(values) > 1 {
		op = "IN"
	}
	return sql.Where{Field: p.field, Value: sql.Ops{{Operator: op, Value: value}}}, true, nil
}
