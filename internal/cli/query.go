package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Drivers selectable with --driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/contrib/httpapi"
	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/dialect/sql"
	"github.com/syssam/modelconnect/internal/schemafile"
	"github.com/syssam/modelconnect/options"
)

// driverDialects maps database/sql driver names to dialects.
var driverDialects = map[string]string{
	"postgres": dialect.Postgres,
	"pgx":      dialect.Postgres,
	"mysql":    dialect.MySQL,
	"sqlite":   dialect.SQLite,
}

var errNoDSN = errors.New("no data source, set --dsn or MODELCONNECT_DSN")

func registerDatabaseFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.String(keyDriver, "postgres", "database/sql driver (postgres, pgx, mysql, sqlite)")
	fs.String(keyDSN, "", "Data source name")
	fs.Duration(keySlow, 100*time.Millisecond, "Log queries slower than this")
}

// open connects to the configured database. Statements go through a
// StatsDriver logging slow ones.
func (a *app) open(reg *modelconnect.Registry) (*sql.StatsDriver, error) {
	driver, dsn := a.v.GetString(keyDriver), a.v.GetString(keyDSN)
	if dsn == "" {
		return nil, errNoDSN
	}
	if _, ok := driverDialects[driver]; !ok {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	drv, err := sql.Open(reg.Dialect(), driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}
	return sql.NewStatsDriver(drv,
		sql.WithSlowThreshold(a.v.GetDuration(keySlow)),
		sql.WithSlowQueryLog(a.logger),
	), nil
}

func (a *app) newQueryCmd() *cobra.Command {
	var flags selectFlags
	cmd := &cobra.Command{
		Use:   "query MODEL",
		Short: "Run a SELECT against a database and print rows as JSON lines",
		Example: `  modelconnect query Person -f schema.yaml --driver pgx --dsn "$DATABASE_URL" --filter '{age: {">": 30}}'
  MODELCONNECT_DSN=file:shop.db modelconnect query Person -f schema.yaml --driver sqlite --limit 5`,
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
			drv, err := a.open(reg)
			if err != nil {
				return err
			}
			defer drv.Close()
			return a.query(cmd, reg, drv, m, opts)
		},
	}
	flags.register(cmd)
	cmd.Flags().Int(keyChunkSize, sql.DefaultChunkSize, "Rows fetched per chunk")
	registerDatabaseFlags(cmd)
	return cmd
}

func (a *app) query(cmd *cobra.Command, reg *modelconnect.Registry, drv *sql.StatsDriver, m *schemafile.Model, opts sql.SelectOptions) error {
	co, err := reg.Options(m.Type())
	if err != nil {
		return err
	}
	names := opts.Columns
	if len(names) == 0 {
		names = selectable(co)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	n := 0
	for rv, err := range reg.Query(cmd.Context(), drv, m.Type(), opts, sql.WithChunkSize(a.v.GetInt(keyChunkSize))) {
		if err != nil {
			return err
		}
		row := make(map[string]any, len(names))
		for _, name := range names {
			if mf, ok := co.Field(name); ok {
				row[name] = mf.Descriptor().Value(rv)
			}
		}
		if err := enc.Encode(row); err != nil {
			return err
		}
		n++
	}
	a.logger.Info("query finished",
		zap.String("model", m.Name),
		zap.Int("rows", n),
		zap.Stringer("stats", drv.Report()),
	)
	return nil
}

// selectable returns the fields included in select, in declaration order.
func selectable(co *options.ConnectOptions) []string {
	var names []string
	for _, name := range co.Fields.Names() {
		mf, _ := co.Field(name)
		if f, ok := sql.FieldOf(mf); ok && f.IncludeInSelect.Or(true) {
			names = append(names, name)
		}
	}
	return names
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve list and create endpoints for every model",
		Example: `  modelconnect serve -f schema.yaml --driver sqlite --dsn file:shop.db --addr :8080
  curl 'localhost:8080/api/v1/persons?age[gte]=18&$sort=-age&$count'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, reg, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			drv, err := a.open(reg)
			if err != nil {
				return err
			}
			defer drv.Close()
			app, err := a.newApp(f, reg, drv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				_ = app.Shutdown()
			}()
			addr := a.v.GetString(keyAddr)
			a.logger.Info("listening", zap.String("addr", addr))
			return app.Listen(addr)
		},
	}
	cmd.Flags().String(keyAddr, ":8080", "Listen address")
	registerDatabaseFlags(cmd)
	return cmd
}

// newApp mounts every model of f on a fiber app.
func (a *app) newApp(f *schemafile.File, reg *modelconnect.Registry, ex dialect.ExecQuerier) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})
	for _, m := range f.Models {
		if _, err := httpapi.Mount(app, reg, m.Type(), ex, a.accessLog); err != nil {
			return nil, fmt.Errorf("mounting %s: %w", m.Name, err)
		}
	}
	return app, nil
}

func (a *app) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	a.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	return err
}
