// Package cli implements the modelconnect command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/syssam/modelconnect"
	"github.com/syssam/modelconnect/dialect"
	"github.com/syssam/modelconnect/internal/logging"
	"github.com/syssam/modelconnect/internal/schemafile"
)

// EnvPrefix prefixes the environment variables read by the command,
// e.g. MODELCONNECT_SCHEMA or MODELCONNECT_SLOW_THRESHOLD.
const EnvPrefix = "MODELCONNECT"

// Config keys.
const (
	keyConfig      = "config"
	keyEnvFile     = "env-file"
	keySchema      = "schema"
	keyDialect     = "dialect"
	keyPlaceholder = "placeholder"
	keyLogLevel    = "log-level"
	keyLogFormat   = "log-format"
	keyDriver      = "driver"
	keyDSN         = "dsn"
	keySlow        = "slow-threshold"
	keyChunkSize   = "chunk-size"
	keyAddr        = "addr"
)

var errNoSchema = errors.New("no schema file, set --schema or MODELCONNECT_SCHEMA")

type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

// NewRootCmd returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "modelconnect",
		Short: "modelconnect - compile SQL and routes from record schemas",
		Long: `modelconnect loads record types from a YAML schema file, resolves their
database and HTTP API configuration and compiles SQL statements for them.
It can also run queries against a live database or serve the records over HTTP.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "Path to a YAML config file holding flag values")
	pf.String(keyEnvFile, "", "Path to a .env file loaded before reading the environment")
	pf.StringP(keySchema, "f", "", "Path to the schema file")
	pf.String(keyDialect, "", "SQL dialect (postgres, mysql, sqlite); defaults to the schema file dialect")
	pf.String(keyPlaceholder, "", "Placeholder style (dollar, question, format); defaults to the dialect style")
	pf.String(keyLogLevel, "warn", "Log level (debug, info, warn, error)")
	pf.String(keyLogFormat, "console", "Log encoding (console, json)")

	root.AddCommand(
		a.newSelectCmd(),
		a.newInsertCmd(),
		a.newRoutesCmd(),
		a.newQueryCmd(),
		a.newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// setup binds the flags of the executing command, so a flag set on the
// command line wins over the config file and the environment.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := a.v.GetString(keyEnvFile); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}
	if path := a.v.GetString(keyConfig); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	logger, err := logging.New(logging.Config{
		Level:    a.v.GetString(keyLogLevel),
		Encoding: a.v.GetString(keyLogFormat),
	})
	if err != nil {
		return err
	}
	a.logger = logging.Component(logger, cmd.Name())
	return nil
}

// load reads the schema file and connects its models to a new registry.
func (a *app) load(ctx context.Context) (*schemafile.File, *modelconnect.Registry, error) {
	path := a.v.GetString(keySchema)
	if path == "" {
		return nil, nil, errNoSchema
	}
	f, err := schemafile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	opts := []modelconnect.Option{
		modelconnect.WithLogger(a.logger),
		modelconnect.WithDialect(a.dialect(f)),
	}
	if s := a.v.GetString(keyPlaceholder); s != "" {
		p, err := dialect.ParsePlaceholder(s)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, modelconnect.WithPlaceholder(p))
	}
	reg, err := modelconnect.NewRegistry(opts...)
	if err != nil {
		return nil, nil, err
	}
	f.Apply()
	if err := f.Connect(ctx, reg); err != nil {
		return nil, nil, err
	}
	a.logger.Debug("schema loaded",
		zap.String("path", path),
		zap.Int("models", len(f.Models)),
		zap.String("dialect", reg.Dialect()),
	)
	return f, reg, nil
}

// dialect picks the dialect from the flags, the schema file or the driver,
// in that order.
func (a *app) dialect(f *schemafile.File) string {
	if d := a.v.GetString(keyDialect); d != "" {
		return d
	}
	if f.Dialect != "" {
		return f.Dialect
	}
	if d, ok := driverDialects[a.v.GetString(keyDriver)]; ok {
		return d
	}
	return dialect.Postgres
}

// model loads the schema and returns the named model.
func (a *app) model(ctx context.Context, name string) (*schemafile.Model, *modelconnect.Registry, error) {
	f, reg, err := a.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	m, ok := f.Model(name)
	if !ok {
		return nil, nil, fmt.Errorf("unknown model %q", name)
	}
	return m, reg, nil
}
