// Command ratebook serves and maintains a collection of ratings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/internal/adapters/persistence"
	"github.com/okian/ratebook/internal/config"
	"github.com/okian/ratebook/internal/domain/model"
	"github.com/okian/ratebook/pkg/logger"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	configPath string
	overrides  config.Config

	cfg    *config.Config
	domain model.Domain
	log    logger.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ratebook",
		Short: "Rating collection service",
		Long: `ratebook keeps owner -> item ratings (solvers and puzzles, players and
board games) in memory, serves them over HTTP and persists them to a JSON
document, SQLite or PostgreSQL.

Run without a subcommand to serve.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, stderr)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	f.StringVar(&a.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&a.overrides.LogFormat, "log-format", "", "log format: text or json")
	f.StringVar(&a.overrides.Domain, "domain", "", "collection: "+strings.Join(model.DomainNames(), ", "))
	f.StringVar(&a.overrides.Backend, "backend", "", "persistence: "+strings.Join(persistence.Backends(), ", "))
	f.StringVar(&a.overrides.DataFile, "data-file", "", "JSON document for the json backend")
	f.StringVar(&a.overrides.DSN, "dsn", "", "connection string for the sqlite and postgres backends")
	f.StringVar(&a.overrides.SchemaFile, "schema-file", "", "JSON Schema overriding the embedded one")
	f.StringVar(&a.overrides.Addr, "addr", "", "HTTP listen address")

	root.AddCommand(
		a.newServeCommand(),
		a.newValidateCommand(),
		a.newImportCommand(),
		a.newExportCommand(),
		a.newLoadTestCommand(),
	)
	return root
}

// setup loads configuration, applies flag overrides and initializes logging.
func (a *app) setup(cmd *cobra.Command, stderr io.Writer) error {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx, a.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return err
	}

	flags := cmd.Flags()
	for name, apply := range map[string]func(){
		"log-level":   func() { cfg.LogLevel = a.overrides.LogLevel },
		"log-format":  func() { cfg.LogFormat = a.overrides.LogFormat },
		"domain":      func() { cfg.Domain = a.overrides.Domain },
		"backend":     func() { cfg.Backend = a.overrides.Backend },
		"data-file":   func() { cfg.DataFile = a.overrides.DataFile },
		"dsn":         func() { cfg.DSN = a.overrides.DSN },
		"schema-file": func() { cfg.SchemaFile = a.overrides.SchemaFile },
		"addr":        func() { cfg.Addr = a.overrides.Addr },
	} {
		if flags.Changed(name) {
			apply()
		}
	}

	if err := cfg.Validate(ctx); err != nil {
		fmt.Fprintln(stderr, "invalid config:", err)
		return err
	}

	// Logs go to stderr so that command output on stdout stays clean.
	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging:", err)
		return err
	}
	a.log = logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		a.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	a.domain, err = cfg.ResolveDomain()
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// codec builds the document codec for the configured domain.
func (a *app) codec() (*codec.Codec, error) {
	return codec.New(a.domain,
		codec.WithSchemaFile(a.cfg.SchemaFile),
		codec.WithNormalizer(model.NewNormalizer(a.cfg.NormalizeNames)),
	)
}

// backend opens the configured persistence backend.
func (a *app) backend(ctx context.Context, c *codec.Codec) (persistence.Backend, error) {
	return persistence.Open(ctx, a.cfg.Backend, a.cfg.DataFile, a.cfg.DSN, c)
}
