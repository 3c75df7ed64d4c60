package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/options"
)

// Prefix returns the route prefix of t: the global base prefix, the
// optional version segment and the resource path.
func Prefix(reg *modelconnect.Registry, t reflect.Type) (string, error) {
	r, err := load(reg, t)
	if err != nil {
		return "", err
	}
	return r.prefix(), nil
}

func (r *resource) prefix() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(Global().BasePrefix, "/"))
	if v := r.model.ResourceVersion.Or(0); v > 0 {
		fmt.Fprintf(&b, "/v%d", v)
	}
	b.WriteString(r.model.ResourcePath.Or(""))
	return b.String()
}

// Tags returns the route tags of t.
func Tags(reg *modelconnect.Registry, t reflect.Type) ([]string, error) {
	r, err := load(reg, t)
	if err != nil {
		return nil, err
	}
	return []string{r.model.TagName.Or("")}, nil
}

// Group creates a route group for t under its prefix.
func Group(router fiber.Router, reg *modelconnect.Registry, t reflect.Type, handlers ...fiber.Handler) (fiber.Router, error) {
	prefix, err := Prefix(reg, t)
	if err != nil {
		return nil, err
	}
	return router.Group(prefix, handlers...), nil
}

// Mount registers list and create handlers for t under its prefix:
//
//	GET  /api/v1/persons?age[gte]=18&$sort=-age&$limit=10
//	POST /api/v1/persons
//
// Statements run through ex using the registry's dialect.
func Mount(router fiber.Router, reg *modelconnect.Registry, t reflect.Type, ex dialect.ExecQuerier, handlers ...fiber.Handler) (fiber.Router, error) {
	r, err := load(reg, t)
	if err != nil {
		return nil, err
	}
	h := &handler{res: r, reg: reg, typ: t, ex: ex}
	g := router.Group(r.prefix(), handlers...)
	g.Get("/", h.list)
	g.Post("/", h.create)
	return g, nil
}

type handler struct {
	res *resource
	reg *modelconnect.Registry
	typ reflect.Type
	ex  dialect.ExecQuerier
}

func (h *handler) list(c *fiber.Ctx) error {
	q, err := h.res.parseQuery(collect(c.Request().URI().QueryArgs().VisitAll))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	opts := q.SelectOptions
	opts.Columns = h.res.selected(options.MethodGet)
	data := make([]map[string]any, 0)
	for rv, err := range h.reg.Query(c.UserContext(), h.ex, h.typ, opts) {
		if err != nil {
			return err
		}
		item, err := h.res.response(options.MethodGet, rv)
		if err != nil {
			return err
		}
		data = append(data, item)
	}
	body := fiber.Map{"data": data}
	if q.Count {
		stmt, err := h.reg.Count(h.typ, q.SelectOptions)
		if err != nil {
			return err
		}
		n, err := sql.QueryCount(c.UserContext(), h.ex, h.reg.Dialect(), stmt)
		if err != nil {
			return err
		}
		body["count"] = n
	}
	return c.JSON(body)
}

func (h *handler) create(c *fiber.Ctx) error {
	var in map[string]any
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	row, err := h.res.request(options.MethodPost, in)
	if err != nil {
		if errors.Is(err, ErrMissingField) || errors.Is(err, ErrInvalidParam) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	cols := h.insertColumns(row)
	if len(cols) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no insertable fields in request body")
	}
	stmt, err := h.reg.Insert(h.typ, row, sql.InsertOptions{Columns: cols})
	if err != nil {
		return err
	}
	for rv, err := range sql.StreamValues(c.UserContext(), h.ex, h.reg.Dialect(), h.res.co, stmt) {
		if err != nil {
			return err
		}
		out, err := h.res.response(options.MethodPost, rv)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": out})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// selected returns the exposed fields the response of method includes and
// the database selects. Identifier fields stand in when none are left.
func (r *resource) selected(method options.Method) []string {
	var names, ids []string
	for _, name := range r.co.Fields.Names() {
		mf, _ := r.co.Field(name)
		if f, ok := sql.FieldOf(mf); ok && !f.IncludeInSelect.Or(true) {
			continue
		}
		if mf.IsIdentifier.Or(false) {
			ids = append(ids, name)
		}
	}
	for _, p := range r.params {
		if f, ok := sql.FieldOf(p.mf); ok && !f.IncludeInSelect.Or(true) {
			continue
		}
		if dto := p.mf.Response[method]; dto != nil && !dto.Include.Or(true) {
			continue
		}
		names = append(names, p.field)
	}
	if len(names) == 0 {
		return ids
	}
	return names
}

// insertColumns returns the insertable fields present in row, in
// declaration order.
func (h *handler) insertColumns(row map[string]any) []string {
	var cols []string
	for _, name := range h.res.co.Fields.Names() {
		if _, ok := row[name]; !ok {
			continue
		}
		mf, _ := h.res.co.Field(name)
		if f, ok := sql.FieldOf(mf); ok && f.IncludeInInsert.Or(true) {
			cols = append(cols, name)
		}
	}
	return cols
}
