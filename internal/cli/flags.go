package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/opt"
)

// selectFlags are the statement flags shared by select, query and count.
type selectFlags struct {
	filter  string
	sort    []string
	limit   int
	offset  int
	groupBy []string
	columns []string
}

func (s *selectFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&s.filter, "filter", "", `Filter as a YAML or JSON mapping, e.g. '{age: {">=": 18}, name: [bob, joe]}'`)
	fs.StringSliceVar(&s.sort, "sort", nil, "Sort terms, e.g. age:desc,name")
	fs.IntVar(&s.limit, "limit", 0, "Maximum number of rows")
	fs.IntVar(&s.offset, "offset", 0, "Number of rows to skip")
	fs.StringSliceVar(&s.groupBy, "group-by", nil, "Fields to group by")
	fs.StringSliceVar(&s.columns, "columns", nil, "Fields to select; defaults to every selectable field")
}

func (s *selectFlags) options(cmd *cobra.Command) (sql.SelectOptions, error) {
	filter, err := parseFilter(s.filter)
	if err != nil {
		return sql.SelectOptions{}, err
	}
	opts := sql.SelectOptions{
		Filter:  filter,
		Sort:    parseSort(s.sort),
		GroupBy: sql.GroupBy(s.groupBy),
		Columns: s.columns,
	}
	limit, offset := cmd.Flags().Changed("limit"), cmd.Flags().Changed("offset")
	if limit || offset {
		opts.Pagination = &sql.Pagination{}
		if limit {
			opts.Pagination.Limit = opt.Some[any](s.limit)
		}
		if offset {
			opts.Pagination.Skip = opt.Some[any](s.offset)
		}
	}
	return opts, nil
}

// parseFilter reads a filter mapping keeping the order of its keys. A
// nested mapping lists operators in order:
//
//	{age: {">=": 18, "<": 65}, name: bob, id: [1, 2], deleted_at: null}
func parseFilter(s string) (sql.Filter, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("parsing filter: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing filter: expected a mapping, got %s", m.ShortTag())
	}
	var filter sql.Filter
	for i := 0; i+1 < len(m.Content); i += 2 {
		name, val := m.Content[i].Value, m.Content[i+1]
		if val.Kind != yaml.MappingNode {
			var v any
			if err := val.Decode(&v); err != nil {
				return nil, fmt.Errorf("parsing filter %s: %w", name, err)
			}
			filter = append(filter, sql.Where{Field: name, Value: v})
			continue
		}
		var ops sql.Ops
		for j := 0; j+1 < len(val.Content); j += 2 {
			var v any
			if err := val.Content[j+1].Decode(&v); err != nil {
				return nil, fmt.Errorf("parsing filter %s: %w", name, err)
			}
			ops = append(ops, sql.Op{Operator: val.Content[j].Value, Value: v})
		}
		filter = append(filter, sql.Where{Field: name, Value: ops})
	}
	return filter, nil
}

// parseSort reads "field" or "field:direction" terms.
func parseSort(terms []string) sql.Sort {
	var sort sql.Sort
	for _, term := range terms {
		name, dir, ok := strings.Cut(strings.TrimSpace(term), ":")
		if name == "" {
			continue
		}
		if !ok {
			dir = "asc"
		}
		sort = append(sort, sql.Order{Field: name, Direction: dir})
	}
	return sort
}
