// Package sql implements the "database" integration: per-model table and
// per-field column settings, the query option processors and the SQL
// compiler built on them.
//
// # Configuration
//
// The integration registers itself on import. Override its defaults through
// the options graph:
//
//	modelconnect.Connect[Person](&options.ConnectOptions{
//		Model: &options.Model{Integrations: []options.ModelConfig{sql.Table("people")}},
//		Fields: options.NewModelFields(map[string]*options.ModelField{
//			"name": {Integrations: []options.FieldConfig{sql.Column("full_name")}},
//		}),
//	})
//
// # Compiling statements
//
// Filters, sort terms and group-by lists are ordered slices. Unknown fields
// and fields whose capability flag forbids the operation are skipped:
//
//	stmt, err := sql.Select(co, sql.SelectOptions{
//		Filter: sql.Filter{
//			{Field: "name", Value: sql.Ops{{Operator: "LIKE", Value: "%o%"}, {Operator: "!=", Value: []string{"joe", "bob"}}}},
//			{Field: "id", Value: []int{1, 2, 3}},
//			{Field: "age", Value: 12},
//		},
//		Sort:       sql.Sort{{Field: "age", Direction: "desc"}},
//		Pagination: sql.Page(10, 20),
//	})
//	// SELECT id, name, age FROM person WHERE name LIKE $1 AND name != $2 AND name != $3
//	//   AND id IN $4 AND age = $5 ORDER BY age DESC LIMIT $6 OFFSET $7
//
// IN operands are bound as a single Tuple and INSERT rows as a single Batch.
// Expand flattens both for database/sql drivers:
//
//	sql.Expand(stmt).SQL // ... id IN ($4, $5, $6) ...
//
// # Execution
//
// Driver wraps a database/sql connection. Stream executes a compiled
// statement and maps result rows onto records in chunks, and StatsDriver
// reports statement usage per table and kind.
package sql
