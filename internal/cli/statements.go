package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/opt"
)

// compiled is the JSON form of a statement printed by select and insert.
type compiled struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

func writeStatement(w io.Writer, s *sql.Statement) error {
	s = sql.Expand(s)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(compiled{SQL: s.SQL, Args: s.Args})
}

func (a *app) newSelectCmd() *cobra.Command {
	var (
		flags selectFlags
		count bool
	)
	cmd := &cobra.Command{
		Use:   "select MODEL",
		Short: "Compile a SELECT statement",
		Example: `  modelconnect select Person -f schema.yaml --filter '{age: {">=": 18}}' --sort age:desc --limit 10
  modelconnect select Person -f schema.yaml --filter '{name: bob}' --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, reg, err := a.model(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			build := reg.Select
			if count {
				build = reg.Count
			}
			stmt, err := build(m.Type(), opts)
			if err != nil {
				return err
			}
			return writeStatement(cmd.OutOrStdout(), stmt)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&count, "count", false, "Compile SELECT COUNT(*) honoring the filter only")
	return cmd
}

type insertFlags struct {
	rows     string
	columns  []string
	conflict string
	targets  []string
	update   []string
}

func (a *app) newInsertCmd() *cobra.Command {
	var flags insertFlags
	cmd := &cobra.Command{
		Use:   "insert MODEL",
		Short: "Compile an INSERT statement from YAML or JSON rows",
		Example: `  modelconnect insert Person -f schema.yaml --rows people.yaml
  cat people.json | modelconnect insert Person -f schema.yaml --rows - --on-conflict update --target id`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, reg, err := a.model(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := readRows(cmd.InOrStdin(), flags.rows)
			if err != nil {
				return err
			}
			for _, row := range rows {
				m.Fill(row)
			}
			opts := sql.InsertOptions{Columns: flags.columns}
			if flags.conflict != "" {
				oc := &sql.OnConflict{Do: flags.conflict}
				if len(flags.targets) > 0 {
					oc.ConflictTargets = opt.Some(flags.targets)
				}
				if len(flags.update) > 0 {
					oc.UpdateColumns = opt.Some(flags.update)
				}
				opts.OnConflict = oc
			}
			stmt, err := reg.Insert(m.Type(), rows, opts)
			if err != nil {
				return err
			}
			return writeStatement(cmd.OutOrStdout(), stmt)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&flags.rows, "rows", "", `Path to a YAML or JSON list of rows keyed by field name, "-" for stdin`)
	fs.StringSliceVar(&flags.columns, "columns", nil, "Fields to insert; defaults to every insertable field")
	fs.StringVar(&flags.conflict, "on-conflict", "", "Conflict action (nothing, update)")
	fs.StringSliceVar(&flags.targets, "target", nil, "Conflict target fields")
	fs.StringSliceVar(&flags.update, "update", nil, "Fields updated on conflict")
	_ = cmd.MarkFlagRequired("rows")
	return cmd
}

// readRows decodes a list of rows. JSON input is valid YAML.
func readRows(stdin io.Reader, path string) ([]map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing rows: %w", err)
	}
	return rows, nil
}
